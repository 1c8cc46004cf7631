package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"animalcare-rag/internal/app"
	"animalcare-rag/internal/model"
	"animalcare-rag/internal/transport/http/response"
)

type ChatService interface {
	Handle(ctx context.Context, in app.ChatInput) (*app.ChatResult, error)
	History(ctx context.Context, sessionID string) ([]model.ChatTurn, error)
}

type ChatHandler struct {
	chatService ChatService
}

type ChatRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id" binding:"max=64"`
	Model     string `json:"model"`
}

func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.Handle(c.Request.Context(), app.ChatInput{
		Question:  req.Question,
		SessionID: req.SessionID,
		Model:     req.Model,
	})
	if err != nil {
		writeError(c, err, "chat failed")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Query("session_id")
	turns, err := h.chatService.History(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err, "load history failed")
		return
	}
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	response.OK(c, gin.H{
		"session_id": sessionID,
		"turns":      turns,
	})
}

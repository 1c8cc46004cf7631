package http

import (
	"github.com/gin-gonic/gin"

	"animalcare-rag/internal/transport/http/handler"
)

type RouterDeps struct {
	GinMode        string
	MaxUploadBytes int64
	Chat           handler.ChatService
	Documents      handler.DocumentService
	Health         *handler.HealthHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if deps.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = deps.MaxUploadBytes
	}

	if deps.Health != nil {
		router.GET("/healthz", deps.Health.Check)
	}

	chatHandler := handler.NewChatHandler(deps.Chat)
	router.POST("/chat", chatHandler.Chat)
	router.GET("/chat/history", chatHandler.History)

	docHandler := handler.NewDocumentHandler(deps.Documents)
	router.POST("/upload-doc", docHandler.Upload)
	router.GET("/list-docs", docHandler.List)
	router.POST("/delete-doc", docHandler.Delete)

	return router
}

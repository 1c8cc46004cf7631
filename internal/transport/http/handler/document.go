package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"animalcare-rag/internal/app"
	"animalcare-rag/internal/model"
	"animalcare-rag/internal/transport/http/response"
)

type DocumentService interface {
	Upload(ctx context.Context, files []app.UploadFile) []app.UploadResult
	List(ctx context.Context) ([]model.Document, error)
	Delete(ctx context.Context, id uint) error
}

type DocumentHandler struct {
	docService DocumentService
}

type DeleteDocumentRequest struct {
	FileID uint `json:"file_id" binding:"required,gt=0"`
}

func NewDocumentHandler(docService DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// Upload accepts one or more parts named "files" (a single "file" part also works).
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	var headers []*multipart.FileHeader
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files uploaded")
		return
	}

	files := make([]app.UploadFile, len(headers))
	for i, fh := range headers {
		files[i] = app.UploadFile{
			Filename:    fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}
	}

	response.OK(c, h.docService.Upload(c.Request.Context(), files))
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docService.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "list documents failed")
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	var req DeleteDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file_id is required")
		return
	}

	err := h.docService.Delete(c.Request.Context(), req.FileID)
	switch {
	case err == nil:
		response.OK(c, gin.H{"message": app.DeletedMessage(req.FileID)})
	case errors.Is(err, app.ErrIndexDelete):
		response.Error(c, http.StatusInternalServerError, response.CodeIndexDelete,
			fmt.Sprintf("Failed to delete document with file_id %d from the vector index.", req.FileID))
	case errors.Is(err, app.ErrInconsistentState):
		response.Error(c, http.StatusInternalServerError, response.CodeInconsistentState,
			fmt.Sprintf("Deleted from the vector index but failed to delete document with file_id %d from the database.", req.FileID))
	default:
		writeError(c, err, "delete document failed")
	}
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"animalcare-rag/internal/app"
	"animalcare-rag/internal/transport/http/response"
)

// writeError maps service errors onto status codes. fallback is shown for unclassified failures.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrUnsupportedFileType):
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFileType, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrRequestTimeout):
		response.Error(c, http.StatusGatewayTimeout, response.CodeTimeout, "request timed out")
	case errors.Is(err, app.ErrProvider):
		response.Error(c, http.StatusBadGateway, response.CodeProvider, "language model provider failed")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

package response

import "github.com/gin-gonic/gin"

const (
	CodeBadRequest          = 40000
	CodeUnsupportedFileType = 40001
	CodeFileTooLarge        = 40002
	CodeDocumentNotFound    = 40401
	CodeInternalServer      = 50000
	CodeIndexDelete         = 50001
	CodeInconsistentState   = 50010
	CodeProvider            = 50200
	CodeTimeout             = 50400
)

type ErrorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// OK writes data as the whole body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, ErrorResponse{
		Code:  code,
		Error: message,
	})
}

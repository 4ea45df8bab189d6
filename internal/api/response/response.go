package response

import (
	"net/http"

	"github.com/adamscao/inkwell/internal/auth"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error aborts the request with an error response
func Error(c *gin.Context, statusCode int, errorCode string, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// AuthError maps a classified auth error to its status code and aborts the
// request. Internal causes are logged by the caller, never sent.
func AuthError(c *gin.Context, err error) {
	e := auth.AsError(err)
	Error(c, StatusFor(e.Kind), e.PublicCode(), e.Message)
}

// StatusFor returns the HTTP status for an error kind
func StatusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindAuthentication:
		return http.StatusUnauthorized
	case auth.KindAuthorization:
		return http.StatusForbidden
	case auth.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adamscao/inkwell/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", auth.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
		{"conflict", auth.ErrEmailInUse, http.StatusConflict, "email_in_use"},
		{"authentication", auth.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
		{"authorization", auth.ErrTokenInvalid, http.StatusForbidden, "invalid_token"},
		{"not found", auth.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{"unknown email", auth.ErrEmailNotFound, http.StatusUnauthorized, "invalid_credentials"},
		{"wrong password", auth.ErrIncorrectPassword, http.StatusUnauthorized, "invalid_credentials"},
		{"unclassified", errors.New("secret detail"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			AuthError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.True(t, c.IsAborted())

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
			assert.NotEmpty(t, body.Message)
			assert.NotContains(t, body.Message, "secret detail")
		})
	}
}

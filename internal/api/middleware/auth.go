package middleware

import (
	"strings"

	"github.com/adamscao/inkwell/internal/api/response"
	"github.com/adamscao/inkwell/internal/auth"
	"github.com/gin-gonic/gin"
)

// Authenticate requires a valid bearer access token and attaches its claims
// to the request context. A missing token is 401, an expired one 401 and a
// forged or malformed one 403.
func Authenticate(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.AuthError(c, auth.ErrNoToken)
			return
		}

		claims, err := tokens.VerifyAccessToken(token)
		if err != nil {
			response.AuthError(c, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireAdmin only lets callers with the admin role through. It must be
// mounted after Authenticate; without claims in the context it rejects.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok {
			response.AuthError(c, auth.ErrIdentityMissing)
			return
		}

		if !claims.IsAdmin() {
			response.AuthError(c, auth.ErrAdminRequired)
			return
		}

		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

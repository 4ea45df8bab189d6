package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adamscao/inkwell/internal/api/response"
	"github.com/adamscao/inkwell/internal/auth"
	"github.com/adamscao/inkwell/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(tokens *auth.TokenIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(zap.NewNop()))

	whoami := func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, claims)
	}

	r.GET("/me", Authenticate(tokens), whoami)
	r.GET("/admin", Authenticate(tokens), RequireAdmin(), whoami)
	// wrong order on purpose: the admin guard runs with no identity
	r.GET("/misordered", RequireAdmin(), whoami)
	return r
}

func doRequest(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	r := newTestRouter(tokens)

	valid, err := tokens.IssueAccessToken(auth.Claims{UserID: 3, Email: "a@x.com", Role: models.RoleMember})
	require.NoError(t, err)

	w := doRequest(r, "/me", valid)
	require.Equal(t, http.StatusOK, w.Code)
	var claims auth.Claims
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claims))
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = doRequest(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no_token", errorCode(t, w))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic "+valid)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no_token", errorCode(t, w))
}

func TestAuthenticate_ExpiredVersusForged(t *testing.T) {
	tokens := auth.NewTokenIssuer("access", "refresh", -time.Minute, time.Hour)
	r := newTestRouter(tokens)

	expired, err := tokens.IssueAccessToken(auth.Claims{UserID: 3, Email: "a@x.com"})
	require.NoError(t, err)

	w := doRequest(r, "/me", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token_expired", errorCode(t, w))

	forger := auth.NewTokenIssuer("guessed", "refresh", time.Minute, time.Hour)
	forged, err := forger.IssueAccessToken(auth.Claims{UserID: 3, Email: "a@x.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	w = doRequest(r, "/me", forged)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "invalid_token", errorCode(t, w))

	w = doRequest(r, "/me", "garbage")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "invalid_token", errorCode(t, w))
}

func TestRequireAdmin(t *testing.T) {
	tokens := auth.NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	r := newTestRouter(tokens)

	member, err := tokens.IssueAccessToken(auth.Claims{UserID: 1, Email: "m@x.com", Role: models.RoleMember})
	require.NoError(t, err)
	admin, err := tokens.IssueAccessToken(auth.Claims{UserID: 2, Email: "root@x.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	w := doRequest(r, "/admin", member)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "admin_required", errorCode(t, w))

	w = doRequest(r, "/admin", admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_FailsClosedWithoutIdentity(t *testing.T) {
	tokens := auth.NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	r := newTestRouter(tokens)

	admin, err := tokens.IssueAccessToken(auth.Claims{UserID: 2, Email: "root@x.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	// even a valid admin token is not decoded by RequireAdmin itself
	for _, token := range []string{"", admin} {
		w := doRequest(r, "/misordered", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "authentication_required", errorCode(t, w))
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken("Token abc"))
	assert.Equal(t, "", bearerToken(""))
}

func TestLogger_KeepsRequestID(t *testing.T) {
	r := newTestRouter(auth.NewTokenIssuer("access", "refresh", time.Minute, time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

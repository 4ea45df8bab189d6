package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adamscao/inkwell/internal/api/response"
	"github.com/adamscao/inkwell/internal/auth"
	"github.com/adamscao/inkwell/internal/db/repository"
	"github.com/adamscao/inkwell/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// RefreshCookieName is the cookie carrying the refresh token
	RefreshCookieName = "refreshToken"

	refreshCookieMaxAge = 7 * 24 * time.Hour
)

// AuthHandler handles registration, login, session and 2FA endpoints
type AuthHandler struct {
	service       *auth.Service
	audit         auditor
	secureCookies bool
	logger        *zap.Logger
}

// NewAuthHandler creates a new auth handler. secureCookies sets the Secure
// attribute on the refresh cookie and should be true in production.
func NewAuthHandler(service *auth.Service, auditRepo *repository.AuditRepository, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:       service,
		audit:         auditor{repo: auditRepo, logger: logger},
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// CredentialsRequest is the body of register and register-admin
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Token2FA string `json:"token2FA"`
}

// VerifyTwoFactorRequest represents a 2FA verification request
type VerifyTwoFactorRequest struct {
	Token2FA string `json:"token2FA"`
}

// RegisterResponse represents a registration response
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Message     string      `json:"message"`
	AccessToken string      `json:"accessToken"`
	UserID      int64       `json:"userId"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
}

// RefreshResponse represents a refresh response
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// MessageResponse is a response carrying only a message
type MessageResponse struct {
	Message string `json:"message"`
}

// EnableTwoFactorResponse represents a 2FA enrollment response
type EnableTwoFactorResponse struct {
	Message    string `json:"message"`
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRCode     string `json:"qr_code"`
}

// CheckTokenResponse represents a token introspection response
type CheckTokenResponse struct {
	Message      string       `json:"message"`
	TokenPayload *auth.Claims `json:"tokenPayload"`
}

// ProfileResponse represents a profile response
type ProfileResponse struct {
	Message string       `json:"message"`
	User    *auth.Claims `json:"user"`
}

// Register creates a member account
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, err := h.service.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.audit.failure(c, models.ActionRegister, req.Email, auth.AsError(err).Code)
		h.fail(c, err)
		return
	}

	h.audit.success(c, models.ActionRegister, req.Email)
	c.JSON(http.StatusCreated, RegisterResponse{
		Message: "User registered successfully!",
		UserID:  userID,
	})
}

// RegisterAdmin creates an admin account when admin registration is enabled
// POST /api/auth/register-admin
func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	var req CredentialsRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, err := h.service.RegisterAdmin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.audit.failure(c, models.ActionRegisterAdmin, req.Email, auth.AsError(err).Code)
		h.fail(c, err)
		return
	}

	h.audit.success(c, models.ActionRegisterAdmin, req.Email)
	c.JSON(http.StatusCreated, RegisterResponse{
		Message: "Admin user registered successfully!",
		UserID:  userID,
	})
}

// Login authenticates a user and starts a session
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password, req.Token2FA)
	if err != nil {
		// the internal code keeps the real reason for the audit trail
		h.audit.failure(c, models.ActionLoginFailed, req.Email, auth.AsError(err).Code)
		h.fail(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	h.audit.success(c, models.ActionLogin, result.User.Email)

	c.JSON(http.StatusOK, LoginResponse{
		Message:     "Logged in successfully!",
		AccessToken: result.AccessToken,
		UserID:      result.User.ID,
		Email:       result.User.Email,
		Role:        result.User.Role,
	})
}

// RefreshToken issues a new access token from the refresh cookie
// POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(RefreshCookieName)

	result, err := h.service.RefreshAccessToken(c.Request.Context(), token)
	if err != nil {
		h.audit.failure(c, models.ActionRefreshFailed, "", auth.AsError(err).Code)
		h.fail(c, err)
		return
	}

	if result.RefreshToken != "" {
		h.setRefreshCookie(c, result.RefreshToken)
	}

	h.audit.success(c, models.ActionRefresh, "")
	c.JSON(http.StatusOK, RefreshResponse{AccessToken: result.AccessToken})
}

// Logout revokes the session held by the refresh cookie. It always succeeds.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(RefreshCookieName)

	h.service.Logout(c.Request.Context(), token)
	h.clearRefreshCookie(c)

	h.audit.success(c, models.ActionLogout, "")
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully."})
}

// EnableTwoFactor enrolls the caller in TOTP
// POST /api/auth/enable-2fa
func (h *AuthHandler) EnableTwoFactor(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}

	enrollment, err := h.service.EnableTwoFactor(c.Request.Context(), claims.UserID)
	if err != nil {
		h.audit.failure(c, models.ActionEnable2FA, claims.Email, auth.AsError(err).Code)
		h.fail(c, err)
		return
	}

	h.audit.success(c, models.ActionEnable2FA, claims.Email)
	c.JSON(http.StatusOK, EnableTwoFactorResponse{
		Message:    "2FA enabled. Scan this secret with your authenticator app.",
		Secret:     enrollment.Secret,
		OTPAuthURL: enrollment.OTPAuthURL,
		QRCode:     enrollment.QRCode,
	})
}

// VerifyTwoFactor checks a TOTP code for the caller
// POST /api/auth/verify-2fa
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}

	var req VerifyTwoFactorRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.VerifyTwoFactor(c.Request.Context(), claims.UserID, req.Token2FA); err != nil {
		h.audit.failure(c, models.ActionVerify2FA, claims.Email, auth.AsError(err).Code)
		h.fail(c, err)
		return
	}

	h.audit.success(c, models.ActionVerify2FA, claims.Email)
	c.JSON(http.StatusOK, MessageResponse{Message: "2FA token verified successfully."})
}

// CheckToken returns the decoded access token
// GET /api/auth/check-token
func (h *AuthHandler) CheckToken(c *gin.Context) {
	claims, _ := auth.ClaimsFromContext(c.Request.Context())

	payload, err := h.service.CheckToken(claims)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckTokenResponse{
		Message:      "Token is valid and here is its payload.",
		TokenPayload: payload,
	})
}

// Profile greets the caller
// GET /api/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		Message: fmt.Sprintf("Welcome user %s! This is your profile.", claims.Email),
		User:    claims,
	})
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	e := auth.AsError(err)
	if e.Kind == auth.KindInternal {
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(e.Err),
		)
	}
	response.AuthError(c, e)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, token, int(refreshCookieMaxAge.Seconds()), "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, "", -1, "/", "", h.secureCookies, true)
}

// bindJSON decodes the request body. An empty body decodes to the zero
// request so field validation reports what is missing.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}

func claimsOrAbort(c *gin.Context) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		response.AuthError(c, auth.ErrIdentityMissing)
		return nil, false
	}
	return claims, true
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/adamscao/inkwell/internal/api/response"
	"github.com/adamscao/inkwell/internal/db/repository"
	"github.com/adamscao/inkwell/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AdminHandler handles administrative operations
type AdminHandler struct {
	userRepo  *repository.UserRepository
	auditRepo *repository.AuditRepository
	logger    *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userRepo *repository.UserRepository, auditRepo *repository.AuditRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// ListUsersResponse represents a user listing
type ListUsersResponse struct {
	Users []*models.User `json:"users"`
	Total int            `json:"total"`
}

// ListAuditLogsResponse represents an audit log listing
type ListAuditLogsResponse struct {
	Logs  []*models.AuditLog `json:"logs"`
	Total int                `json:"total"`
}

// ListUsers lists all accounts without credentials
// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "database_error", "Failed to list users")
		return
	}

	if users == nil {
		users = []*models.User{}
	}

	c.JSON(http.StatusOK, ListUsersResponse{Users: users, Total: len(users)})
}

// ListAuditLogs lists audit entries, newest first
// GET /api/admin/audit-logs?email=&action=&limit=
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	logs, err := h.auditRepo.List(c.Request.Context(), c.Query("email"), c.Query("action"), limit)
	if err != nil {
		h.logger.Error("failed to list audit logs", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "database_error", "Failed to list audit logs")
		return
	}

	if logs == nil {
		logs = []*models.AuditLog{}
	}

	c.JSON(http.StatusOK, ListAuditLogsResponse{Logs: logs, Total: len(logs)})
}

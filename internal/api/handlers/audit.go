package handlers

import (
	"github.com/adamscao/inkwell/internal/db/repository"
	"github.com/adamscao/inkwell/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// auditor records authentication events. Failures to write are logged and
// never affect the response.
type auditor struct {
	repo   *repository.AuditRepository
	logger *zap.Logger
}

func (a auditor) success(c *gin.Context, action, email string) {
	a.record(c, action, email, true, "")
}

func (a auditor) failure(c *gin.Context, action, email, reason string) {
	a.record(c, action, email, false, reason)
}

func (a auditor) record(c *gin.Context, action, email string, success bool, reason string) {
	if a.repo == nil {
		return
	}

	err := a.repo.Create(c.Request.Context(), &models.AuditLog{
		Action:    action,
		Email:     email,
		ClientIP:  c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Success:   success,
		ErrorMsg:  reason,
	})
	if err != nil {
		a.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

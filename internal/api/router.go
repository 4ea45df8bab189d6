package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/adamscao/inkwell/internal/api/handlers"
	"github.com/adamscao/inkwell/internal/api/middleware"
	"github.com/adamscao/inkwell/internal/auth"
	"github.com/adamscao/inkwell/internal/config"
	"github.com/adamscao/inkwell/internal/db/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	config *config.Config
	logger *zap.Logger
	http   *http.Server
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	authService *auth.Service,
	userRepo *repository.UserRepository,
	auditRepo *repository.AuditRepository,
	logger *zap.Logger,
) *Server {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Create handlers
	authHandler := handlers.NewAuthHandler(authService, auditRepo, cfg.IsProduction(), logger)
	adminHandler := handlers.NewAdminHandler(userRepo, auditRepo, logger)

	authenticate := middleware.Authenticate(authService.Tokens())

	api := router.Group("/api")
	{
		// Auth endpoints
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/register-admin", authHandler.RegisterAdmin)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh-token", authHandler.RefreshToken)
			authGroup.POST("/logout", authHandler.Logout)

			authGroup.POST("/enable-2fa", authenticate, authHandler.EnableTwoFactor)
			authGroup.POST("/verify-2fa", authenticate, authHandler.VerifyTwoFactor)
			authGroup.GET("/check-token", authenticate, authHandler.CheckToken)
			authGroup.GET("/profile", authenticate, authHandler.Profile)
		}

		// Admin endpoints (require an admin access token)
		admin := api.Group("/admin")
		admin.Use(authenticate, middleware.RequireAdmin())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return &Server{
		router: router,
		config: cfg,
		logger: logger,
		http: &http.Server{
			Addr:              cfg.Server.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

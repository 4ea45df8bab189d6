package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adamscao/inkwell/internal/api"
	"github.com/adamscao/inkwell/internal/auth"
	"github.com/adamscao/inkwell/internal/config"
	"github.com/adamscao/inkwell/internal/db"
	"github.com/adamscao/inkwell/internal/db/repository"
	"github.com/adamscao/inkwell/internal/logging"
	"go.uber.org/zap"
)

var (
	// Version information (set via ldflags)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional, env vars override it)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Inkwell API\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting Inkwell API",
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("environment", cfg.Server.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	logger.Info("connecting to database", zap.String("driver", cfg.Database.Driver))
	database, err := db.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, database); err != nil {
		return err
	}

	if cfg.Auth.AllowAdminRegistration {
		logger.Warn("POST /api/auth/register-admin is OPEN: anyone can create an admin account. " +
			"Disable auth.allow_admin_registration and use the admin CLI instead.")
	}
	if !cfg.IsProduction() {
		logger.Warn("refresh cookie is sent without the Secure attribute", zap.String("environment", cfg.Server.Environment))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB)

	authService := auth.NewService(
		userRepo,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewTokenIssuer(
			cfg.Auth.AccessTokenSecret,
			cfg.Auth.RefreshTokenSecret,
			cfg.GetAccessTokenTTL(),
			cfg.GetRefreshTokenTTL(),
		),
		auth.NewTOTPVerifier(cfg.Auth.TOTPIssuer),
		auth.Options{
			RotateRefreshTokens:    cfg.Auth.RotateRefreshTokens,
			AllowAdminRegistration: cfg.Auth.AllowAdminRegistration,
		},
		logger.Named("auth"),
	)

	server := api.NewServer(cfg, authService, userRepo, auditRepo, logger.Named("http"))

	return server.Run(ctx)
}

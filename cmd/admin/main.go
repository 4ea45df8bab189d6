package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adamscao/inkwell/internal/auth"
	"github.com/adamscao/inkwell/internal/config"
	"github.com/adamscao/inkwell/internal/db"
	"github.com/adamscao/inkwell/internal/db/repository"
	"github.com/adamscao/inkwell/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	cfg        *config.Config
	database   *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Inkwell administration tool",
	Long:  "Administrative tool for managing Inkwell accounts, sessions, and audit logs",
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE:  createUser,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  listUsers,
}

var userRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a user's refresh token",
	RunE:  revokeSession,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect audit logs",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log entries, newest first",
	RunE:  listAuditLogs,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit log entries older than a given age",
	RunE:  pruneAuditLogs,
}

var (
	email        string
	password     string
	asAdmin      bool
	generateTOTP bool
	auditAction  string
	auditLimit   int
	olderThan    string
)

func init() {
	// Root flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")

	// User create flags
	userCreateCmd.Flags().StringVarP(&email, "email", "e", "", "Email (required)")
	userCreateCmd.Flags().StringVarP(&password, "password", "p", "", "Password (required)")
	userCreateCmd.Flags().BoolVar(&asAdmin, "admin", false, "Create the account with the admin role")
	userCreateCmd.Flags().BoolVar(&generateTOTP, "generate-totp", false, "Enable 2FA and print the TOTP secret")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("password")

	// User revoke flags
	userRevokeCmd.Flags().StringVarP(&email, "email", "e", "", "Email (required)")
	userRevokeCmd.MarkFlagRequired("email")

	// Audit flags
	auditListCmd.Flags().StringVarP(&email, "email", "e", "", "Filter by email")
	auditListCmd.Flags().StringVarP(&auditAction, "action", "a", "", "Filter by action")
	auditListCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "Maximum number of entries")
	auditPruneCmd.Flags().StringVar(&olderThan, "older-than", "90d", "Age of entries to delete (e.g. 90d, 720h)")

	// Add commands
	userCmd.AddCommand(userCreateCmd, userListCmd, userRevokeCmd)
	auditCmd.AddCommand(auditListCmd, auditPruneCmd)
	rootCmd.AddCommand(userCmd, auditCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initDB(ctx context.Context) error {
	// Load configuration
	var err error
	cfg, err = config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Connect to database
	database, err = db.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return db.RunMigrations(ctx, database)
}

// newService builds an auth service for trusted operator use, so admin
// registration is always allowed here.
func newService(userRepo *repository.UserRepository) *auth.Service {
	return auth.NewService(
		userRepo,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewTokenIssuer(
			cfg.Auth.AccessTokenSecret,
			cfg.Auth.RefreshTokenSecret,
			cfg.GetAccessTokenTTL(),
			cfg.GetRefreshTokenTTL(),
		),
		auth.NewTOTPVerifier(cfg.Auth.TOTPIssuer),
		auth.Options{AllowAdminRegistration: true},
		zap.NewNop(),
	)
}

func createUser(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := initDB(ctx); err != nil {
		return err
	}
	defer database.Close()

	userRepo := repository.NewUserRepository(database.DB)
	service := newService(userRepo)

	register, role, action := service.Register, models.RoleMember, models.ActionRegister
	if asAdmin {
		register, role, action = service.RegisterAdmin, models.RoleAdmin, models.ActionRegisterAdmin
	}

	userID, err := register(ctx, email, password)
	if err != nil {
		return fmt.Errorf("failed to create user: %s", describe(err))
	}

	recordAudit(ctx, action, email)

	fmt.Printf("\nUser created successfully!\n")
	fmt.Printf("User ID: %d\n", userID)
	fmt.Printf("Email:   %s\n", email)
	fmt.Printf("Role:    %s\n", role)

	if generateTOTP {
		enrollment, err := service.EnableTwoFactor(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to enable 2FA: %s", describe(err))
		}
		recordAudit(ctx, models.ActionEnable2FA, email)

		fmt.Printf("\nTOTP Secret: %s\n", enrollment.Secret)
		fmt.Printf("TOTP URL:    %s\n", enrollment.OTPAuthURL)
		fmt.Printf("\nAdd the URL to a TOTP app (Google Authenticator, Authy, etc.)\n")
	}

	return nil
}

func listUsers(cmd *cobra.Command, args []string) error {
	if err := initDB(cmd.Context()); err != nil {
		return err
	}
	defer database.Close()

	userRepo := repository.NewUserRepository(database.DB)
	users, err := userRepo.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	fmt.Printf("\nTotal users: %d\n\n", len(users))
	fmt.Printf("%-5s %-30s %-8s %-5s %-8s %s\n", "ID", "Email", "Role", "2FA", "Session", "Created")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, user := range users {
		fmt.Printf("%-5d %-30s %-8s %-5s %-8s %s\n",
			user.ID,
			user.Email,
			user.Role,
			yesNo(user.TwoFactorEnabled()),
			yesNo(user.RefreshTokenHash != ""),
			user.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	return nil
}

func revokeSession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := initDB(ctx); err != nil {
		return err
	}
	defer database.Close()

	userRepo := repository.NewUserRepository(database.DB)
	user, err := userRepo.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("no user with email %s", email)
	}
	if err != nil {
		return err
	}

	if err := userRepo.RevokeSession(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	recordAudit(ctx, models.ActionRevokeSession, email)
	fmt.Printf("Session revoked for %s\n", email)
	return nil
}

func listAuditLogs(cmd *cobra.Command, args []string) error {
	if err := initDB(cmd.Context()); err != nil {
		return err
	}
	defer database.Close()

	auditRepo := repository.NewAuditRepository(database.DB)
	logs, err := auditRepo.List(cmd.Context(), email, auditAction, auditLimit)
	if err != nil {
		return fmt.Errorf("failed to list audit logs: %w", err)
	}

	if len(logs) == 0 {
		fmt.Println("No audit log entries found")
		return nil
	}

	fmt.Printf("%-20s %-16s %-30s %-16s %-4s %s\n", "Time", "Action", "Email", "Client IP", "OK", "Error")
	fmt.Println("------------------------------------------------------------------------------------------------")

	for _, l := range logs {
		fmt.Printf("%-20s %-16s %-30s %-16s %-4s %s\n",
			l.Timestamp.Format("2006-01-02 15:04:05"),
			l.Action,
			l.Email,
			l.ClientIP,
			yesNo(l.Success),
			l.ErrorMsg,
		)
	}

	return nil
}

func pruneAuditLogs(cmd *cobra.Command, args []string) error {
	age, err := config.ParseDuration(olderThan)
	if err != nil {
		return fmt.Errorf("invalid --older-than: %w", err)
	}

	if err := initDB(cmd.Context()); err != nil {
		return err
	}
	defer database.Close()

	auditRepo := repository.NewAuditRepository(database.DB)
	count, err := auditRepo.DeleteOld(cmd.Context(), time.Now().Add(-age))
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d audit log entries older than %s\n", count, olderThan)
	return nil
}

func recordAudit(ctx context.Context, action, email string) {
	auditRepo := repository.NewAuditRepository(database.DB)
	err := auditRepo.Create(ctx, &models.AuditLog{
		Action:    action,
		Email:     email,
		ClientIP:  "cli",
		UserAgent: "inkwell-admin",
		Success:   true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write audit log: %v\n", err)
	}
}

func describe(err error) string {
	e := auth.AsError(err)
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", e.Message, e.Err)
	}
	return e.Message
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

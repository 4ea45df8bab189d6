package auth

import (
	"context"
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/adamscao/inkwell/internal/models"
	"go.uber.org/zap"
)

const (
	// MinPasswordLength is enforced at registration only
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt accepts
	MaxPasswordBytes = 72
)

// UserStore is the persistence the auth service depends on.
// Lookups fail with models.ErrNotFound; Create fails with
// models.ErrConflict on a duplicate email.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByRefreshToken(ctx context.Context, tokenHash string) (*models.User, error)
	SetRefreshToken(ctx context.Context, id int64, tokenHash string) error
	ClearRefreshToken(ctx context.Context, tokenHash string) (int64, error)
	SetTwoFactorSecret(ctx context.Context, id int64, secret string) error
}

// Options toggles optional behavior of the service
type Options struct {
	// RotateRefreshTokens issues and stores a new refresh token on every refresh
	RotateRefreshTokens bool
	// AllowAdminRegistration opens the public admin registration operation
	AllowAdminRegistration bool
}

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// RefreshResult is returned by a successful refresh. RefreshToken is only
// set when rotation is enabled.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// Service implements registration, login, session and second factor flows
type Service struct {
	users  UserStore
	hasher PasswordHasher
	tokens *TokenIssuer
	totp   *TOTPVerifier
	opts   Options
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new auth service
func NewService(users UserStore, hasher PasswordHasher, tokens *TokenIssuer, totp *TOTPVerifier, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		totp:   totp,
		opts:   opts,
		logger: logger,
	}
}

// Tokens returns the issuer used to sign and verify tokens
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates a member account and returns its id
func (s *Service) Register(ctx context.Context, email, password string) (int64, error) {
	return s.register(ctx, email, password, models.RoleMember)
}

// RegisterAdmin creates an admin account. It fails with
// ErrAdminRegistrationDisabled unless explicitly allowed.
func (s *Service) RegisterAdmin(ctx context.Context, email, password string) (int64, error) {
	if !s.opts.AllowAdminRegistration {
		return 0, ErrAdminRegistrationDisabled
	}
	s.logger.Warn("creating admin account through public registration", zap.String("email", email))
	return s.register(ctx, email, password, models.RoleAdmin)
}

func (s *Service) register(ctx context.Context, email, password string, role models.Role) (int64, error) {
	if email == "" || password == "" {
		return 0, ErrMissingField
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return 0, ErrWeakPassword
	}
	if len(password) > MaxPasswordBytes {
		return 0, ErrPasswordTooLong
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return 0, ErrEmailInUse
	} else if !errors.Is(err, models.ErrNotFound) {
		return 0, Internal("check existing user", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, Internal("hash password", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, models.ErrConflict) {
			return 0, ErrEmailInUse
		}
		return 0, Internal("create user", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	return user.ID, nil
}

// Login checks credentials and the second factor when enabled, then issues
// a token pair. The refresh token replaces any previously stored one.
func (s *Service) Login(ctx context.Context, email, password, totpCode string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingField
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		// spend the same bcrypt work as a known email
		s.compareDummy(password)
		return nil, ErrEmailNotFound
	}
	if err != nil {
		return nil, Internal("find user", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, Internal("verify password", err)
	}
	if !ok {
		return nil, ErrIncorrectPassword
	}

	if user.TwoFactorEnabled() {
		if totpCode == "" {
			return nil, ErrTwoFactorRequired
		}
		if !s.totp.Verify(user.TwoFactorSecret, totpCode) {
			return nil, ErrInvalidTwoFactorCode
		}
	}

	claims := ClaimsFor(user)
	accessToken, err := s.tokens.IssueAccessToken(claims)
	if err != nil {
		return nil, Internal("issue access token", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(claims)
	if err != nil {
		return nil, Internal("issue refresh token", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, HashToken(refreshToken)); err != nil {
		return nil, Internal("store refresh token", err)
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (s *Service) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("inkwell-dummy-password")
		if err != nil {
			s.logger.Error("failed to create dummy password hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

// RefreshAccessToken issues a new access token for a live refresh token.
// The stored slot is consulted before the signature so a logged out token
// is rejected even while it is still cryptographically valid.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	user, err := s.users.GetByRefreshToken(ctx, HashToken(refreshToken))
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, Internal("find refresh token", err)
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil || claims.UserID != user.ID {
		s.logger.Warn("stored refresh token failed verification", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, ErrInvalidRefreshToken
	}

	fresh := ClaimsFor(user)
	accessToken, err := s.tokens.IssueAccessToken(fresh)
	if err != nil {
		return nil, Internal("issue access token", err)
	}

	result := &RefreshResult{AccessToken: accessToken}

	if s.opts.RotateRefreshTokens {
		next, err := s.tokens.IssueRefreshToken(fresh)
		if err != nil {
			return nil, Internal("issue refresh token", err)
		}
		if err := s.users.SetRefreshToken(ctx, user.ID, HashToken(next)); err != nil {
			return nil, Internal("store refresh token", err)
		}
		result.RefreshToken = next
	}

	return result, nil
}

// Logout clears the stored refresh token matching the given one. It never
// fails: store errors are logged and dropped.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	n, err := s.users.ClearRefreshToken(ctx, HashToken(refreshToken))
	if err != nil {
		s.logger.Error("failed to clear refresh token on logout", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("session revoked on logout")
	}
}

// EnableTwoFactor enrolls the user in TOTP and returns the secret once
func (s *Service) EnableTwoFactor(ctx context.Context, userID int64) (*TOTPEnrollment, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, Internal("find user", err)
	}

	if user.TwoFactorEnabled() {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	enrollment, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, Internal("generate 2FA secret", err)
	}

	if err := s.users.SetTwoFactorSecret(ctx, user.ID, enrollment.Secret); err != nil {
		// a concurrent enrollment got there first
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrTwoFactorAlreadyEnabled
		}
		return nil, Internal("store 2FA secret", err)
	}

	s.logger.Info("2FA enabled", zap.Int64("user_id", user.ID))
	return enrollment, nil
}

// VerifyTwoFactor checks a code against the user's secret. It does not
// change any session state.
func (s *Service) VerifyTwoFactor(ctx context.Context, userID int64, code string) error {
	if code == "" {
		return ErrMissingTwoFactorCode
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrTwoFactorNotEnabled
	}
	if err != nil {
		return Internal("find user", err)
	}

	if !user.TwoFactorEnabled() {
		return ErrTwoFactorNotEnabled
	}

	if !s.totp.Verify(user.TwoFactorSecret, code) {
		return ErrInvalidTwoFactorCode
	}

	return nil
}

// CheckToken returns the claims the authentication guard decoded
func (s *Service) CheckToken(claims *Claims) (*Claims, error) {
	if claims == nil {
		return nil, ErrIdentityMissing
	}
	return claims, nil
}

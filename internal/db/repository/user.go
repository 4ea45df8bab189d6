package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adamscao/inkwell/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

const userColumns = `id, email, password_hash, role, two_factor_secret, refresh_token_hash, created_at, updated_at`

// UserRepository handles user data access
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user. A duplicate email yields models.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if user.Role == "" {
		user.Role = models.RoleMember
	}

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		string(user.Role),
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create user: %w", models.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	return nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByRefreshToken retrieves the user currently holding the given refresh token digest
func (r *UserRepository) GetByRefreshToken(ctx context.Context, tokenHash string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE refresh_token_hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

// SetRefreshToken overwrites the user's refresh token slot
func (r *UserRepository) SetRefreshToken(ctx context.Context, id int64, tokenHash string) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, tokenHash, id)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}

	return expectRows(result, models.ErrNotFound)
}

// ClearRefreshToken empties the slot of every user holding the given digest
// and returns how many rows were touched
func (r *UserRepository) ClearRefreshToken(ctx context.Context, tokenHash string) (int64, error) {
	query := `
		UPDATE users
		SET refresh_token_hash = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE refresh_token_hash = $1
	`

	result, err := r.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return 0, fmt.Errorf("failed to clear refresh token: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

// RevokeSession empties the refresh token slot of a user by id
func (r *UserRepository) RevokeSession(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET refresh_token_hash = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return expectRows(result, models.ErrNotFound)
}

// SetTwoFactorSecret stores the TOTP secret if none is set yet. When the
// user already has one the call fails with models.ErrConflict.
func (r *UserRepository) SetTwoFactorSecret(ctx context.Context, id int64, secret string) error {
	query := `
		UPDATE users
		SET two_factor_secret = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND two_factor_secret IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, secret, id)
	if err != nil {
		return fmt.Errorf("failed to set two factor secret: %w", err)
	}

	return expectRows(result, models.ErrConflict)
}

// List lists all users
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	user := &models.User{}
	var role string
	var secret, refresh sql.NullString

	err := s.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&role,
		&secret,
		&refresh,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = models.Role(role)
	user.TwoFactorSecret = secret.String
	user.RefreshTokenHash = refresh.String

	return user, nil
}

func expectRows(result sql.Result, none error) error {
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if count == 0 {
		return none
	}
	return nil
}

// isUniqueViolation recognizes unique constraint errors from both drivers
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return false
}

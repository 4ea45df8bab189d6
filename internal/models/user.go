package models

import "time"

// Role is the authorization level of a user account
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User represents a user account
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"` // Never expose password hash in JSON
	Role             Role      `json:"role"`
	TwoFactorSecret  string    `json:"-"` // Never expose TOTP secret in JSON
	RefreshTokenHash string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TwoFactorEnabled reports whether login requires a TOTP code
func (u *User) TwoFactorEnabled() bool {
	return u.TwoFactorSecret != ""
}

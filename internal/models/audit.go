package models

import "time"

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Email     string    `json:"email,omitempty"`
	ClientIP  string    `json:"client_ip"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
}

// Audit action constants
const (
	ActionRegister      = "register"
	ActionRegisterAdmin = "register_admin"
	ActionLogin         = "login"
	ActionLoginFailed   = "login_failed"
	ActionRefresh       = "refresh"
	ActionRefreshFailed = "refresh_failed"
	ActionLogout        = "logout"
	ActionEnable2FA     = "enable_2fa"
	ActionVerify2FA     = "verify_2fa"
	ActionRevokeSession = "revoke_session"
)

package auth

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so the HTTP layer can map it to a status code
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindAuthorization
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified failure of an auth operation. Message is safe to
// show to clients; Err carries the underlying cause for server logs.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error

	parent *Error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so a wrapped copy still satisfies errors.Is
// against its sentinel. A child reason also matches its parent.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.parent != nil && e.parent.Code == t.Code {
		return true
	}
	return e.Code == t.Code
}

// PublicCode is the code shown to clients. Child reasons report their
// parent's code so the response does not reveal which one occurred.
func (e *Error) PublicCode() string {
	if e.parent != nil {
		return e.parent.Code
	}
	return e.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// ErrInvalidCredentials is the parent of ErrEmailNotFound and
// ErrIncorrectPassword. Both share its external message.
var ErrInvalidCredentials = newError(KindAuthentication, "invalid_credentials", "Invalid credentials.")

func credentialError(code string) *Error {
	e := newError(KindAuthentication, code, ErrInvalidCredentials.Message)
	e.parent = ErrInvalidCredentials
	return e
}

var (
	ErrMissingField    = newError(KindValidation, "missing_field", "Email and password are required.")
	ErrWeakPassword    = newError(KindValidation, "weak_password", "Password must be at least 6 characters long.")
	ErrPasswordTooLong = newError(KindValidation, "password_too_long", "Password must be at most 72 bytes long.")
	ErrEmailInUse      = newError(KindConflict, "email_in_use", "Email already in use.")

	ErrEmailNotFound        = credentialError("email_not_found")
	ErrIncorrectPassword    = credentialError("incorrect_password")
	ErrTwoFactorRequired    = newError(KindAuthentication, "two_factor_required", "2FA token is required.")
	ErrInvalidTwoFactorCode = newError(KindAuthentication, "invalid_two_factor_code", "Invalid 2FA token.")

	ErrNoRefreshToken      = newError(KindAuthentication, "no_refresh_token", "Refresh token not found.")
	ErrInvalidRefreshToken = newError(KindAuthorization, "invalid_refresh_token", "Invalid refresh token.")

	ErrUserNotFound            = newError(KindNotFound, "user_not_found", "User not found.")
	ErrTwoFactorAlreadyEnabled = newError(KindValidation, "two_factor_already_enabled", "2FA is already enabled for this user.")
	ErrTwoFactorNotEnabled     = newError(KindValidation, "two_factor_not_enabled", "2FA is not enabled for this user.")
	ErrMissingTwoFactorCode    = newError(KindValidation, "missing_field", "2FA token is required.")

	ErrNoToken         = newError(KindAuthentication, "no_token", "Access token not found.")
	ErrTokenExpired    = newError(KindAuthentication, "token_expired", "Access token expired.")
	ErrTokenInvalid    = newError(KindAuthorization, "invalid_token", "Invalid access token.")
	ErrIdentityMissing = newError(KindAuthentication, "authentication_required", "Authentication required.")
	ErrAdminRequired   = newError(KindAuthorization, "admin_required", "Admin privileges required.")

	ErrAdminRegistrationDisabled = newError(KindAuthorization, "admin_registration_disabled", "Admin registration is disabled.")
)

// Internal wraps an unexpected failure. The client only sees a generic message.
func Internal(op string, err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    "internal_error",
		Message: "Internal server error.",
		Err:     fmt.Errorf("%s: %w", op, err),
	}
}

// AsError extracts the classified error from err, treating anything
// unclassified as internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("unclassified", err)
}

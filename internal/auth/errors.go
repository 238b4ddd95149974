package auth

import "errors"

var (
	ErrInvalidToken       = errors.New("invalid session token")
	ErrTokenExpired       = errors.New("session token expired")
	ErrUserNotFound       = errors.New("token user no longer exists")
	ErrUserDeactivated    = errors.New("user account is deactivated")
	ErrPasswordChanged    = errors.New("password changed after token was issued")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError marks input the caller can correct: malformed email,
// short password, confirmation mismatch.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the credential record. Password hash, reset-token state and the
// active flag never leave the process as JSON.
type User struct {
	ID                  string     `json:"id" db:"id"`
	Name                string     `json:"name" db:"name"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	PasswordChangedAt   *time.Time `json:"-" db:"password_changed_at"`
	ResetTokenHash      *string    `json:"-" db:"reset_token_hash"`
	ResetTokenExpiresAt *time.Time `json:"-" db:"reset_token_expires_at"`
	Role                string     `json:"role" db:"role"`
	Active              bool       `json:"-" db:"active"`
	Photo               string     `json:"photo" db:"photo"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PasswordChangedAfter reports whether the password was replaced after the
// given instant. The stored timestamp is backdated one second on update, so a
// token issued in the same second as the change still counts as stale.
func (u *User) PasswordChangedAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return t.Before(*u.PasswordChangedAt)
}

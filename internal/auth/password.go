package auth

import (
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	DefaultBcryptCost = 12
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// HashPassword derives a bcrypt hash with the given cost. The cost trades
// offline brute-force resistance against interactive latency.
func HashPassword(plaintext string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext attempt against a stored hash. bcrypt
// performs the comparison itself, so no timing information beyond the
// algorithm's own leaks out.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// ValidatePassword enforces the minimum length and, when a confirmation was
// supplied, its exact equality with the password.
func ValidatePassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return &ValidationError{Message: "password must be at least 8 characters long"}
	}
	if confirm != "" && confirm != password {
		return &ValidationError{Message: "passwords do not match"}
	}
	return nil
}

// NormalizeEmail lower-cases and validates an address. Emails are unique
// case-insensitively, so the lowered form is what gets stored and looked up.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", &ValidationError{Message: "invalid email address"}
	}
	return email, nil
}

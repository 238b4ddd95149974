package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventbook-backend/internal/models"
)

const userColumns = `id, name, email, password_hash, password_changed_at,
	reset_token_hash, reset_token_expires_at, role, active, photo, created_at`

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, active, photo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.Role, user.Active, user.Photo,
	).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}

	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := s.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the hash and stamps password_changed_at one second
// in the past, so session tokens issued in the same second come out stale.
func (s *Storage) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_changed_at = NOW() - INTERVAL '1 second'
		WHERE id = $2
	`
	_, err := s.db.ExecContext(ctx, query, passwordHash, id)
	return err
}

// SetResetToken stores the hash of a freshly generated reset secret together
// with its expiry. Both columns move together: a later consume or clear
// resets both.
func (s *Storage) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_token_hash = $1, reset_token_expires_at = $2
		WHERE id = $3
	`
	_, err := s.db.ExecContext(ctx, query, tokenHash, expiresAt, id)
	return err
}

func (s *Storage) ClearResetToken(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

// ConsumeResetToken performs the check-and-clear of a reset secret as one
// conditional UPDATE. The WHERE clause matches only an unexpired token and
// the SET clears it, so two concurrent consumers cannot both succeed.
func (s *Storage) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (*models.User, error) {
	query := `
		UPDATE users
		SET password_hash = $2,
			password_changed_at = NOW() - INTERVAL '1 second',
			reset_token_hash = NULL,
			reset_token_expires_at = NULL
		WHERE reset_token_hash = $1 AND reset_token_expires_at > NOW()
		RETURNING ` + userColumns

	var user models.User
	if err := s.db.QueryRowContext(ctx, query, tokenHash, newPasswordHash).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.PasswordChangedAt,
		&user.ResetTokenHash,
		&user.ResetTokenExpiresAt,
		&user.Role,
		&user.Active,
		&user.Photo,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}

	return &user, nil
}

// DeleteExpiredResetTokens clears reset state that was never consumed.
func (s *Storage) DeleteExpiredResetTokens(ctx context.Context) (int64, error) {
	query := `
		UPDATE users
		SET reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE reset_token_expires_at IS NOT NULL AND reset_token_expires_at < NOW()
	`
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"eventbook-backend/internal/models"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewStorage(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func userRow(u *models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "password_changed_at",
		"reset_token_hash", "reset_token_expires_at", "role", "active", "photo", "created_at",
	}).AddRow(
		u.ID, u.Name, u.Email, u.PasswordHash, u.PasswordChangedAt,
		u.ResetTokenHash, u.ResetTokenExpiresAt, u.Role, u.Active, u.Photo, u.CreatedAt,
	)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateUser(context.Background(), &models.User{
		ID: "u1", Name: "Test", Email: "user@example.com", PasswordHash: "hash",
		Role: models.RoleUser, Active: true, Photo: "default.jpg",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_ReturnsCreatedAt(t *testing.T) {
	store, mock := newMockStorage(t)

	created := time.Now().UTC().Truncate(time.Second)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("u1", "Test", "user@example.com", "hash", models.RoleUser, true, "default.jpg").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	user := &models.User{
		ID: "u1", Name: "Test", Email: "user@example.com", PasswordHash: "hash",
		Role: models.RoleUser, Active: true, Photo: "default.jpg",
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	require.Equal(t, created, user.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_NotFoundIsNil(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email =")).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	user, err := store.GetUserByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, user)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID(t *testing.T) {
	store, mock := newMockStorage(t)

	want := &models.User{
		ID: "u1", Name: "Test", Email: "user@example.com", PasswordHash: "hash",
		Role: models.RoleUser, Active: true, Photo: "default.jpg",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id =")).
		WithArgs("u1").
		WillReturnRows(userRow(want))

	user, err := store.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, want, user)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeResetToken_NoMatchIsInvalid(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE reset_token_hash = $1 AND reset_token_expires_at > NOW()")).
		WithArgs("deadbeef", "newhash").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := store.ConsumeResetToken(context.Background(), "deadbeef", "newhash")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
	require.Nil(t, user)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeResetToken_ReturnsClearedUser(t *testing.T) {
	store, mock := newMockStorage(t)

	changedAt := time.Now().Add(-time.Second).UTC().Truncate(time.Second)
	cleared := &models.User{
		ID: "u1", Name: "Test", Email: "user@example.com", PasswordHash: "newhash",
		PasswordChangedAt: &changedAt,
		Role:              models.RoleUser, Active: true, Photo: "default.jpg",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE reset_token_hash = $1 AND reset_token_expires_at > NOW()")).
		WithArgs("deadbeef", "newhash").
		WillReturnRows(userRow(cleared))

	user, err := store.ConsumeResetToken(context.Background(), "deadbeef", "newhash")
	require.NoError(t, err)
	require.Equal(t, "newhash", user.PasswordHash)
	require.Nil(t, user.ResetTokenHash)
	require.Nil(t, user.ResetTokenExpiresAt)
	require.NotNil(t, user.PasswordChangedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePassword_BackdatesChangeStamp(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("password_changed_at = NOW() - INTERVAL '1 second'")).
		WithArgs("newhash", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdatePassword(context.Background(), "u1", "newhash"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredResetTokens(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("reset_token_expires_at < NOW()")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := store.DeleteExpiredResetTokens(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	require.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	require.False(t, isUniqueViolation(errors.New("plain")))
}

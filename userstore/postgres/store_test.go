package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStoreFixture(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	s := New(mock)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func columns() []string {
	return []string{"id", "email", "name", "username", "password", "is_verified", "is_deleted", "created_at"}
}

func userRow(username any) *pgxmock.Rows {
	return pgxmock.NewRows(columns()).AddRow(
		"u-1", "alice@example.com", "Alice", username, "$2a$04$hash", true, false, fixedNow,
	)
}

func TestFindByIdentifier(t *testing.T) {
	s, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id = \\$1 OR LOWER\\(email\\)").
		WithArgs("alice@example.com").
		WillReturnRows(userRow("alice"))

	u, err := s.FindByIdentifier(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsVerified)
	assert.Equal(t, fixedNow, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIdentifierNullUsername(t *testing.T) {
	s, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs("u-1").
		WillReturnRows(userRow(nil))

	u, err := s.FindByIdentifier(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Empty(t, u.Username)
}

func TestFindByIdentifierNotFound(t *testing.T) {
	s, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.FindByIdentifier(context.Background(), "ghost")
	assert.ErrorIs(t, err, sessionauth.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	s, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "bob@example.com", "Bob", pgxmock.AnyArg(), "hash", false, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.Create(context.Background(), sessionauth.NewUser{
		Email:        "bob@example.com",
		Name:         "Bob",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	s, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_key"})

	_, err := s.Create(context.Background(), sessionauth.NewUser{Email: "bob@example.com", Name: "Bob"})
	assert.ErrorIs(t, err, sessionauth.ErrConflict)
}

func TestUpdateBuildsSetList(t *testing.T) {
	s, mock := newStoreFixture(t)
	defer mock.Close()

	name := "Alicia"
	hash := "new-hash"
	mock.ExpectQuery("UPDATE users SET name = \\$1, password = \\$2 WHERE id = \\$3 RETURNING").
		WithArgs(name, hash, "u-1").
		WillReturnRows(userRow("alice"))

	_, err := s.Update(context.Background(), "u-1", sessionauth.UserPatch{Name: &name, PasswordHash: &hash})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUsernameConflict(t *testing.T) {
	s, mock := newStoreFixture(t)
	defer mock.Close()

	username := "taken"
	mock.ExpectQuery("UPDATE users SET username = \\$1 WHERE id = \\$2").
		WithArgs(pgxmock.AnyArg(), "u-1").
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	_, err := s.Update(context.Background(), "u-1", sessionauth.UserPatch{Username: &username})
	assert.ErrorIs(t, err, sessionauth.ErrConflict)
}

func TestSetVerifiedAndSoftDelete(t *testing.T) {
	s, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("UPDATE users SET is_verified = TRUE").
		WithArgs("u-1").
		WillReturnRows(userRow("alice"))
	mock.ExpectExec("UPDATE users SET is_deleted = TRUE").
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET is_deleted = TRUE").
		WithArgs("u-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	u, err := s.SetVerified(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	require.NoError(t, s.SoftDelete(context.Background(), "u-1"))
	assert.ErrorIs(t, s.SoftDelete(context.Background(), "u-2"), sessionauth.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

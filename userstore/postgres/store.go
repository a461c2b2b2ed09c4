// Package postgres is the PostgreSQL [sessionauth.UserStore]. Uniqueness of
// email (case-insensitive) and username is enforced by the schema; unique
// violations surface as [sessionauth.ErrConflict].
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

const userColumns = `id, email, name, username, password, is_verified, is_deleted, created_at`

type Store struct {
	db  DB
	now func() time.Time
}

var _ sessionauth.UserStore = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Connect opens a pool for dsn and checks it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// FindByIdentifier matches id, email (case-insensitive) or username.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (*sessionauth.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 OR LOWER(email) = LOWER($1) OR username = $1
		LIMIT 1`

	return s.scanUser(ctx, query, identifier)
}

func (s *Store) Create(ctx context.Context, in sessionauth.NewUser) (string, error) {
	query := `
		INSERT INTO users (id, email, name, username, password, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	id := uuid.NewString()
	_, err := s.db.Exec(ctx, query,
		id,
		in.Email,
		in.Name,
		nullable(in.Username),
		in.PasswordHash,
		in.IsVerified,
		s.now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %v", sessionauth.ErrConflict, err)
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// Update writes only the non-nil fields of patch. An empty patch is a read.
func (s *Store) Update(ctx context.Context, id string, patch sessionauth.UserPatch) (*sessionauth.User, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Username != nil {
		add("username", nullable(*patch.Username))
	}
	if patch.PasswordHash != nil {
		add("password", *patch.PasswordHash)
	}
	if len(sets) == 0 {
		return s.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	}

	args = append(args, id)
	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) +
		` RETURNING ` + userColumns

	u, err := s.scanUser(ctx, query, args...)
	if err != nil && isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %v", sessionauth.ErrConflict, err)
	}
	return u, err
}

func (s *Store) SetVerified(ctx context.Context, id string) (*sessionauth.User, error) {
	query := `UPDATE users SET is_verified = TRUE WHERE id = $1 RETURNING ` + userColumns
	return s.scanUser(ctx, query, id)
}

func (s *Store) SoftDelete(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx, `UPDATE users SET is_deleted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return sessionauth.ErrNotFound
	}
	return nil
}

func (s *Store) scanUser(ctx context.Context, query string, args ...any) (*sessionauth.User, error) {
	var (
		u        sessionauth.User
		username pgtype.Text
	)
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&username,
		&u.PasswordHash,
		&u.IsVerified,
		&u.IsDeleted,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sessionauth.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if username.Valid {
		u.Username = username.String
	}
	return &u, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// isUniqueViolation reports SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}

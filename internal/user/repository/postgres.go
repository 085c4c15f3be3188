package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/L1oneSs/AuthTemplate/internal/user/domain"
)

// PostgresRepository persists users in the users table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a user repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `id, email, username, password_hash, first_name, last_name, patronymic,
	is_active, deleted, last_login, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetByUsername returns the user with the given username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// Create inserts the user and fills in its assigned ID and timestamps.
// Unique violations on email or username map to the package sentinel errors.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, first_name, last_name, patronymic, is_active, deleted)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		u.Email, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Patronymic, u.IsActive, u.Deleted,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

// UpdateProfile persists email, username, and name fields for the user.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $2, username = NULLIF($3, ''), first_name = $4, last_name = $5, patronymic = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.Patronymic,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return mapUniqueViolation(err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash for the user.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	return err
}

// UpdateLastLogin stamps the user's last_login with the current time.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = now(), updated_at = now() WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		username  *string
		lastLogin *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Email, &username, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Patronymic,
		&u.IsActive, &u.Deleted, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if username != nil {
		u.Username = *username
	}
	u.LastLogin = lastLogin
	return &u, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return ErrDuplicateEmail
		case strings.Contains(pgErr.ConstraintName, "username"):
			return ErrDuplicateUsername
		}
	}
	return err
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/L1oneSs/AuthTemplate/internal/session/domain"
)

// PostgresRepository persists sessions in the user_sessions table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a session repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `id, user_id, refresh_token, ip_address, user_agent,
	browser_family, browser_version, os_family, os_version,
	device_family, device_brand, device_model,
	is_mobile, is_tablet, is_pc, is_bot,
	expires_at, is_active, created_at`

const insertSessionSQL = `
	INSERT INTO user_sessions (
		id, user_id, refresh_token, ip_address, user_agent,
		browser_family, browser_version, os_family, os_version,
		device_family, device_brand, device_model,
		is_mobile, is_tablet, is_pc, is_bot,
		expires_at, is_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, true)`

// Create inserts the session as active. The refresh_token unique constraint
// makes a token collision a hard insert error rather than a silent overwrite.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.pool.Exec(ctx, insertSessionSQL, insertArgs(s)...)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.IsActive = true
	return nil
}

// GetByID returns the session for id regardless of its active flag, or nil
// if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// FindActiveByToken returns the active session holding refreshToken, or nil.
func (r *PostgresRepository) FindActiveByToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE refresh_token = $1 AND is_active = true`,
		refreshToken)
	return scanSession(row)
}

// Retire marks the session inactive. Missing or already-retired sessions are
// a no-op.
func (r *PostgresRepository) Retire(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE user_sessions SET is_active = false WHERE id = $1`, id)
	return err
}

// RetireAllForUser retires the user's active sessions, keeping the one holding
// exceptToken when it is non-empty. Returns the number of sessions retired.
func (r *PostgresRepository) RetireAllForUser(ctx context.Context, userID int64, exceptToken string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_sessions SET is_active = false
		WHERE user_id = $1 AND is_active = true AND ($2 = '' OR refresh_token <> $2)`,
		userID, exceptToken)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListActive returns the user's active sessions, most recent first.
func (r *PostgresRepository) ListActive(ctx context.Context, userID int64) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE user_id = $1 AND is_active = true ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Rotate retires the old session and inserts its replacement in one
// transaction. The retire targets the row by id, token, and active flag, so
// of two racing rotations only one finds a row to retire; the other rolls
// back with ErrNotActive and the replacement is never written.
func (r *PostgresRepository) Rotate(ctx context.Context, oldID, oldToken string, next *domain.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE user_sessions SET is_active = false WHERE id = $1 AND refresh_token = $2 AND is_active = true`,
		oldID, oldToken)
	if err != nil {
		return fmt.Errorf("retire old session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotActive
	}

	if _, err := tx.Exec(ctx, insertSessionSQL, insertArgs(next)...); err != nil {
		return fmt.Errorf("insert rotated session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotation: %w", err)
	}
	next.IsActive = true
	return nil
}

// PurgeStale deletes sessions that expired before now, plus retired sessions
// created before retiredBefore. Retired rows are kept for a while so recent
// logouts remain visible in audits. Returns the number of rows removed.
func (r *PostgresRepository) PurgeStale(ctx context.Context, retiredBefore time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM user_sessions
		WHERE expires_at < now() OR (is_active = false AND created_at < $1)`,
		retiredBefore)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func insertArgs(s *domain.Session) []any {
	fp := s.Fingerprint
	return []any{
		s.ID, s.UserID, s.RefreshToken, s.IPAddress, fp.UserAgent,
		fp.BrowserFamily, fp.BrowserVersion, fp.OSFamily, fp.OSVersion,
		fp.DeviceFamily, fp.DeviceBrand, fp.DeviceModel,
		fp.IsMobile, fp.IsTablet, fp.IsPC, fp.IsBot,
		s.ExpiresAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	fp := &s.Fingerprint
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshToken, &s.IPAddress, &fp.UserAgent,
		&fp.BrowserFamily, &fp.BrowserVersion, &fp.OSFamily, &fp.OSVersion,
		&fp.DeviceFamily, &fp.DeviceBrand, &fp.DeviceModel,
		&fp.IsMobile, &fp.IsTablet, &fp.IsPC, &fp.IsBot,
		&s.ExpiresAt, &s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

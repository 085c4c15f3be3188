package repository

import (
	"context"
	"errors"

	"github.com/L1oneSs/AuthTemplate/internal/session/domain"
)

// ErrNotActive is returned by Rotate when the session to rotate is missing,
// already retired, or its refresh token does not match. Two concurrent
// rotations of the same token race on the retire step; the loser gets this.
var ErrNotActive = errors.New("session is not active")

// Repository defines persistence for sessions.
type Repository interface {
	// Create inserts a new active session. The session must have ID and
	// RefreshToken set.
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// FindActiveByToken returns the active session holding the refresh token,
	// or nil. Retired sessions are invisible to this call; a retired token
	// looks exactly like a token that never existed.
	FindActiveByToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	// Retire marks the session inactive. Retiring an already-inactive or
	// missing session is a no-op.
	Retire(ctx context.Context, id string) error
	// RetireAllForUser retires every active session of the user, optionally
	// keeping the one holding exceptToken. Returns the number retired.
	RetireAllForUser(ctx context.Context, userID int64, exceptToken string) (int64, error)
	// ListActive returns the user's active sessions, most recent first.
	ListActive(ctx context.Context, userID int64) ([]*domain.Session, error)
	// Rotate atomically retires the session identified by oldID+oldToken and
	// inserts next as the replacement. If the old session is no longer active
	// the whole operation fails with ErrNotActive and nothing is written.
	Rotate(ctx context.Context, oldID, oldToken string, next *domain.Session) error
}

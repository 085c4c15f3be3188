package repository

import (
	"context"
	"errors"

	"github.com/L1oneSs/AuthTemplate/internal/user/domain"
)

var (
	// ErrDuplicateEmail is returned by Create when the email is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateUsername is returned by Create when the username is already taken.
	ErrDuplicateUsername = errors.New("username already registered")
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// Create inserts the user and assigns its ID. Unique violations map to
	// ErrDuplicateEmail / ErrDuplicateUsername.
	Create(ctx context.Context, u *domain.User) error
	// UpdateProfile persists the mutable profile fields (username, names).
	UpdateProfile(ctx context.Context, u *domain.User) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateLastLogin(ctx context.Context, id int64) error
}

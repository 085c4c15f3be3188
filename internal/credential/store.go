// Package credential owns password policy and hashing for user accounts.
package credential

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/L1oneSs/AuthTemplate/internal/security"
	"github.com/L1oneSs/AuthTemplate/internal/user/domain"
)

// MinPasswordLength is the policy floor for new passwords.
const MinPasswordLength = 6

// ErrWeakPassword is returned when a new password is shorter than
// MinPasswordLength.
var ErrWeakPassword = errors.New("password does not meet minimum length")

// passwordWriter is the slice of the user repository the store needs.
type passwordWriter interface {
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// Store hashes, verifies, and replaces account passwords. Plaintext passwords
// pass through it and are never stored or logged.
type Store struct {
	hasher *security.Hasher
	users  passwordWriter
}

// NewStore returns a credential store using hasher for password hashing and
// users for persistence.
func NewStore(hasher *security.Hasher, users passwordWriter) *Store {
	return &Store{hasher: hasher, users: users}
}

// Hash checks the password against policy and returns its bcrypt hash.
func (s *Store) Hash(plaintext string) (string, error) {
	if utf8.RuneCountInString(plaintext) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	return s.hasher.Hash([]byte(plaintext))
}

// Verify reports whether plaintext matches the stored hash.
func (s *Store) Verify(plaintext, hash string) bool {
	return s.hasher.Compare(hash, []byte(plaintext)) == nil
}

// SetPassword hashes the new password and persists it on the user's row.
// Fails with ErrWeakPassword before touching storage.
func (s *Store) SetPassword(ctx context.Context, u *domain.User, plaintext string) error {
	hash, err := s.Hash(plaintext)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

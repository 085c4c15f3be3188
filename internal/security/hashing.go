package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher produces and checks bcrypt password hashes at a fixed cost.
// Plaintext passwords only pass through; they are never retained.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher, clamping cost into bcrypt's supported range.
// A non-positive cost falls back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns the bcrypt hash of password for storage on the user row.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare checks password against the stored hash. Nil means a match;
// bcrypt.ErrMismatchedHashAndPassword means a wrong password.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}

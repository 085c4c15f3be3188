package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the authoritative account record. Accounts are soft-deleted:
// Deleted and IsActive are flags, the row is never removed once sessions
// reference it.
type User struct {
	ID           int64
	Email        string
	Username     string // optional; unique when set
	PasswordHash string
	FirstName    string
	LastName     string
	Patronymic   string
	IsActive     bool
	Deleted      bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the user for persistence. Returns an error describing the
// first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("email is not valid")
	}
	if u.Username != "" && len(u.Username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}

// FullName joins the name parts, skipping empty ones. Falls back to the
// username, then the email local part, so greeting templates always have
// something to address the user by.
func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.LastName, u.Patronymic} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if u.Username != "" {
		return u.Username
	}
	if i := strings.IndexByte(u.Email, '@'); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}

// Public is the externally visible projection of a user. It never carries
// the password hash.
type Public struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	Username   string     `json:"username,omitempty"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Patronymic string     `json:"patronymic,omitempty"`
	IsActive   bool       `json:"is_active"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PublicView returns the user's public projection.
func (u *User) PublicView() Public {
	return Public{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Patronymic: u.Patronymic,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}

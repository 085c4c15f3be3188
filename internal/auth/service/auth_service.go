package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/L1oneSs/AuthTemplate/internal/credential"
	"github.com/L1oneSs/AuthTemplate/internal/device"
	"github.com/L1oneSs/AuthTemplate/internal/security"
	sessiondomain "github.com/L1oneSs/AuthTemplate/internal/session/domain"
	sessionrepo "github.com/L1oneSs/AuthTemplate/internal/session/repository"
	userdomain "github.com/L1oneSs/AuthTemplate/internal/user/domain"
	userrepo "github.com/L1oneSs/AuthTemplate/internal/user/repository"
)

// Sentinel errors for the auth service; the handler maps them to HTTP status codes.
var (
	ErrValidation          = errors.New("validation failed")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUsernameTaken       = errors.New("username already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserDeactivated     = errors.New("account is deactivated")
	ErrUserDeleted         = errors.New("account is deleted")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrForbidden           = errors.New("session belongs to another user")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AuthResult is the outcome of Register, Login, and Refresh: the user plus a
// token pair bound to one new session.
type AuthResult struct {
	User   *userdomain.User
	Tokens TokenPair
}

// ClientInfo carries per-request transport metadata recorded on the session.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Email      string
	Username   string
	Password   string
	FirstName  string
	LastName   string
	Patronymic string
}

// ProfileUpdate is the payload for UpdateProfile. Nil fields are left
// unchanged. A non-empty NewPassword requests a password change, which
// requires the current password and a matching confirmation.
type ProfileUpdate struct {
	Email      *string
	Username   *string
	FirstName  *string
	LastName   *string
	Patronymic *string

	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdateProfile(ctx context.Context, u *userdomain.User) error
	UpdateLastLogin(ctx context.Context, id int64) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	FindActiveByToken(ctx context.Context, refreshToken string) (*sessiondomain.Session, error)
	Retire(ctx context.Context, id string) error
	RetireAllForUser(ctx context.Context, userID int64, exceptToken string) (int64, error)
	ListActive(ctx context.Context, userID int64) ([]*sessiondomain.Session, error)
	Rotate(ctx context.Context, oldID, oldToken string, next *sessiondomain.Session) error
}

// AuthService implements registration, password login, refresh rotation,
// logout, session management, and the user's own profile.
type AuthService struct {
	users       UserRepo
	sessions    SessionRepo
	credentials *credential.Store
	tokens      *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserRepo, sessions SessionRepo, credentials *credential.Store, tokens *security.TokenProvider) *AuthService {
	return &AuthService{
		users:       users,
		sessions:    sessions,
		credentials: credentials,
		tokens:      tokens,
	}
}

// Register creates a user and logs them in, returning the user and a token
// pair for the session just opened.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, client ClientInfo) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: email is not valid", ErrValidation)
	}
	username := strings.TrimSpace(in.Username)
	if username != "" && len(username) < 3 {
		return nil, fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
	}

	hash, err := s.credentials.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}
	if username != "" {
		if existing, err := s.users.GetByUsername(ctx, username); err != nil {
			return nil, err
		} else if existing != nil {
			return nil, ErrUsernameTaken
		}
	}

	user := &userdomain.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Patronymic:   strings.TrimSpace(in.Patronymic),
		IsActive:     true,
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, userrepo.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, userrepo.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	tokens, err := s.openSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login verifies the credentials and opens a new session. The password check
// runs before the deactivated/deleted checks so that account status is never
// revealed to a caller who does not hold the password.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.credentials.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Deleted {
		return nil, ErrUserDeleted
	}
	if !user.IsActive {
		return nil, ErrUserDeactivated
	}

	tokens, err := s.openSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh rotates the refresh token: the presented token's session is retired
// and replaced by a new one in a single transaction, so every refresh token is
// single-use. A retired or unknown token fails with ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResult, error) {
	if _, _, err := s.tokens.ValidateRefresh(refreshToken); err != nil {
		return nil, ErrInvalidRefreshToken
	}
	current, err := s.sessions.FindActiveByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByID(ctx, current.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Deleted {
		return nil, ErrUserDeleted
	}
	if !user.IsActive {
		return nil, ErrUserDeactivated
	}

	next, tokens, err := s.mintSession(user, client)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Rotate(ctx, current.ID, refreshToken, next); err != nil {
		if errors.Is(err, sessionrepo.ErrNotActive) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Logout retires sessions for the user. With a refresh token it retires only
// the matching session; without one it retires all of the user's active
// sessions. Logout never fails because there was nothing to log out.
func (s *AuthService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	if refreshToken != "" {
		sess, err := s.sessions.FindActiveByToken(ctx, refreshToken)
		if err != nil {
			return err
		}
		if sess == nil || sess.UserID != userID {
			return nil
		}
		return s.sessions.Retire(ctx, sess.ID)
	}
	_, err := s.sessions.RetireAllForUser(ctx, userID, "")
	return err
}

// ListSessions returns the user's active sessions, most recent first.
func (s *AuthService) ListSessions(ctx context.Context, userID int64) ([]*sessiondomain.Session, error) {
	return s.sessions.ListActive(ctx, userID)
}

// RevokeOtherSessions retires every session of the user except the one holding
// currentRefreshToken. Returns the number of sessions retired.
func (s *AuthService) RevokeOtherSessions(ctx context.Context, userID int64, currentRefreshToken string) (int64, error) {
	return s.sessions.RetireAllForUser(ctx, userID, currentRefreshToken)
}

// RevokeSession retires one session by id. Fails with ErrForbidden when the
// session belongs to a different user.
func (s *AuthService) RevokeSession(ctx context.Context, userID int64, sessionID string) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if sess.UserID != userID {
		return ErrForbidden
	}
	return s.sessions.Retire(ctx, sess.ID)
}

// Profile returns the user behind an authenticated request.
func (s *AuthService) Profile(ctx context.Context, userID int64) (*userdomain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Deleted {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of upd to the user's profile.
// Everything is validated before anything is persisted.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*userdomain.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.NewPassword != "" {
		if !s.credentials.Verify(upd.CurrentPassword, user.PasswordHash) {
			return nil, ErrInvalidCredentials
		}
		if upd.NewPassword != upd.ConfirmPassword {
			return nil, fmt.Errorf("%w: password confirmation does not match", ErrValidation)
		}
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if !emailPattern.MatchString(email) {
			return nil, fmt.Errorf("%w: email is not valid", ErrValidation)
		}
		if email != user.Email {
			other, err := s.users.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != userID {
				return nil, ErrEmailTaken
			}
			user.Email = email
		}
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username != "" && len(username) < 3 {
			return nil, fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
		}
		if username != "" && username != user.Username {
			other, err := s.users.GetByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != userID {
				return nil, ErrUsernameTaken
			}
		}
		user.Username = username
	}
	if upd.FirstName != nil {
		user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Patronymic != nil {
		user.Patronymic = strings.TrimSpace(*upd.Patronymic)
	}
	// The password and the profile fields are written by separate statements,
	// password first. A failure between the two leaves the password changed
	// and the profile untouched, never the reverse.
	if upd.NewPassword != "" {
		if err := s.credentials.SetPassword(ctx, user, upd.NewPassword); err != nil {
			return nil, err
		}
	}
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		switch {
		case errors.Is(err, userrepo.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, userrepo.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// mintSession builds a new session row and the token pair bound to it without
// persisting anything.
func (s *AuthService) mintSession(user *userdomain.User, client ClientInfo) (*sessiondomain.Session, TokenPair, error) {
	sessionID := uuid.New().String()
	access, accessExp, err := s.tokens.IssueAccess(sessionID, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(sessionID, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	sess := &sessiondomain.Session{
		ID:           sessionID,
		UserID:       user.ID,
		RefreshToken: refresh,
		IPAddress:    client.IP,
		Fingerprint:  device.Parse(client.UserAgent),
		ExpiresAt:    refreshExp,
	}
	pair := TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}
	return sess, pair, nil
}

// openSession persists a new session for the user and stamps last_login.
func (s *AuthService) openSession(ctx context.Context, user *userdomain.User, client ClientInfo) (TokenPair, error) {
	sess, pair, err := s.mintSession(user, client)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return TokenPair{}, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return TokenPair{}, err
	}
	now := time.Now().UTC()
	user.LastLogin = &now
	return pair, nil
}

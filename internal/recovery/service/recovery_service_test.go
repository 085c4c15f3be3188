package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/L1oneSs/AuthTemplate/internal/credential"
	"github.com/L1oneSs/AuthTemplate/internal/mail"
	"github.com/L1oneSs/AuthTemplate/internal/security"
	userdomain "github.com/L1oneSs/AuthTemplate/internal/user/domain"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]*userdomain.User
}

func newMemUserRepo(users ...*userdomain.User) *memUserRepo {
	m := &memUserRepo{users: make(map[int64]*userdomain.User)}
	for _, u := range users {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

// chanSender records sends on a channel so tests can wait for the background
// delivery goroutine.
type sentMail struct {
	to      string
	subject string
	html    string
}

type chanSender struct {
	ch chan sentMail
}

func newChanSender() *chanSender {
	return &chanSender{ch: make(chan sentMail, 4)}
}

func (c *chanSender) Send(_ context.Context, to, subject, htmlBody, _ string) bool {
	c.ch <- sentMail{to: to, subject: subject, html: htmlBody}
	return true
}

func (c *chanSender) wait(t *testing.T) sentMail {
	t.Helper()
	select {
	case m := <-c.ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for email dispatch")
		return sentMail{}
	}
}

func (c *chanSender) assertNothingSent(t *testing.T) {
	t.Helper()
	select {
	case m := <-c.ch:
		t.Fatalf("unexpected email to %s", m.to)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestRecoveryService(users ...*userdomain.User) (*RecoveryService, *memUserRepo, *chanSender, *security.IntegrityCodec) {
	repo := newMemUserRepo(users...)
	creds := credential.NewStore(security.NewHasher(bcrypt.MinCost), repo)
	codec := security.NewIntegrityCodec("test-salt", 24*time.Hour)
	sender := newChanSender()
	mailer := mail.NewRecoveryMailer(sender, "https://app.example.com")
	svc := NewRecoveryService(repo, creds, codec, mailer, zap.NewNop())
	return svc, repo, sender, codec
}

var tokenParam = regexp.MustCompile(`token=([A-Za-z0-9_%.-]+)`)

// extractToken pulls the recovery token out of the mailed link.
func extractToken(htmlBody string) (string, error) {
	m := tokenParam.FindStringSubmatch(htmlBody)
	if m == nil {
		return "", errors.New("no token link in email body")
	}
	return url.QueryUnescape(m[1])
}

func activeUser() *userdomain.User {
	return &userdomain.User{
		ID:           1,
		Email:        "alice@example.com",
		Username:     "alice",
		FirstName:    "Alice",
		PasswordHash: "$2a$04$notarealhash",
		IsActive:     true,
	}
}

func TestRequestReset_SendsTokenEmail(t *testing.T) {
	svc, _, sender, codec := newTestRecoveryService(activeUser())

	if err := svc.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	msg := sender.wait(t)
	if msg.to != "alice@example.com" {
		t.Errorf("recipient: got %q", msg.to)
	}

	// The mailed link must carry a token that verifies for reset_password.
	token, err := extractToken(msg.html)
	if err != nil {
		t.Fatalf("extract token: %v", err)
	}
	userID, purpose, err := codec.Verify(token, time.Now())
	if err != nil {
		t.Fatalf("mailed token should verify: %v", err)
	}
	if userID != 1 || purpose != security.PurposeResetPassword {
		t.Errorf("token payload: got user %d purpose %q", userID, purpose)
	}
}

func TestRequestReset_UnknownEmailSilentSuccess(t *testing.T) {
	svc, _, sender, _ := newTestRecoveryService(activeUser())

	if err := svc.RequestReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	sender.assertNothingSent(t)
}

func TestRequestReset_DeletedAccountSilentSuccess(t *testing.T) {
	u := activeUser()
	u.Deleted = true
	svc, _, sender, _ := newTestRecoveryService(u)

	if err := svc.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("deleted account must not error: %v", err)
	}
	sender.assertNothingSent(t)
}

func TestCheckToken(t *testing.T) {
	svc, _, _, codec := newTestRecoveryService(activeUser())
	ctx := context.Background()

	token, err := codec.Issue(1, security.PurposeResetPassword, time.Time{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	user, purpose, err := svc.CheckToken(ctx, token)
	if err != nil {
		t.Fatalf("CheckToken: %v", err)
	}
	if user.ID != 1 || purpose != security.PurposeResetPassword {
		t.Errorf("got user %d purpose %q", user.ID, purpose)
	}

	// Checking does not consume the token.
	if _, _, err := svc.CheckToken(ctx, token); err != nil {
		t.Errorf("second check should succeed: %v", err)
	}

	if _, _, err := svc.CheckToken(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: got %v, want ErrInvalidToken", err)
	}

	orphan, _ := codec.Issue(99, security.PurposeResetPassword, time.Time{})
	if _, _, err := svc.CheckToken(ctx, orphan); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("token for missing user: got %v, want ErrUserNotFound", err)
	}
}

func TestCompletePassword(t *testing.T) {
	svc, repo, _, codec := newTestRecoveryService(activeUser())
	ctx := context.Background()
	token, _ := codec.Issue(1, security.PurposeResetPassword, time.Time{})

	if err := svc.CompletePassword(ctx, token, security.PurposeResetPassword, "newsecret", "newsecret"); err != nil {
		t.Fatalf("CompletePassword: %v", err)
	}
	u, _ := repo.GetByID(ctx, 1)
	if u.PasswordHash == "$2a$04$notarealhash" {
		t.Error("password hash should be replaced")
	}
}

func TestCompletePassword_Mismatch(t *testing.T) {
	svc, _, _, codec := newTestRecoveryService(activeUser())
	token, _ := codec.Issue(1, security.PurposeResetPassword, time.Time{})

	err := svc.CompletePassword(context.Background(), token, security.PurposeResetPassword, "newsecret", "different")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("got %v, want ErrPasswordMismatch", err)
	}
}

func TestCompletePassword_WrongPurpose(t *testing.T) {
	svc, _, _, codec := newTestRecoveryService(activeUser())

	// A set_password token must not drive the reset operation.
	token, _ := codec.Issue(1, security.PurposeSetPassword, time.Time{})
	err := svc.CompletePassword(context.Background(), token, security.PurposeResetPassword, "newsecret", "newsecret")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestCompletePassword_ExpiredToken(t *testing.T) {
	svc, _, _, codec := newTestRecoveryService(activeUser())

	token, _ := codec.Issue(1, security.PurposeResetPassword, time.Now().Add(-25*time.Hour))
	err := svc.CompletePassword(context.Background(), token, security.PurposeResetPassword, "newsecret", "newsecret")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestCompletePassword_WeakPassword(t *testing.T) {
	svc, _, _, codec := newTestRecoveryService(activeUser())
	token, _ := codec.Issue(1, security.PurposeResetPassword, time.Time{})

	err := svc.CompletePassword(context.Background(), token, security.PurposeResetPassword, "short", "short")
	if !errors.Is(err, credential.ErrWeakPassword) {
		t.Errorf("got %v, want ErrWeakPassword", err)
	}
}

func TestSendEmail(t *testing.T) {
	svc, _, sender, codec := newTestRecoveryService(activeUser())
	ctx := context.Background()

	if err := svc.SendEmail(ctx, "alice@example.com", mail.KindSetPassword); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	msg := sender.wait(t)
	token, err := extractToken(msg.html)
	if err != nil {
		t.Fatalf("extract token: %v", err)
	}
	if _, purpose, err := codec.Verify(token, time.Now()); err != nil || purpose != security.PurposeSetPassword {
		t.Errorf("mailed token: purpose %q err %v", purpose, err)
	}

	if err := svc.SendEmail(ctx, "nobody@example.com", mail.KindResetPassword); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown account: got %v, want ErrUserNotFound", err)
	}
	if err := svc.SendEmail(ctx, "alice@example.com", "newsletter"); !errors.Is(err, ErrUnknownEmailType) {
		t.Errorf("bad type: got %v, want ErrUnknownEmailType", err)
	}
}

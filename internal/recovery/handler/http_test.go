package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/L1oneSs/AuthTemplate/internal/credential"
	"github.com/L1oneSs/AuthTemplate/internal/mail"
	"github.com/L1oneSs/AuthTemplate/internal/recovery/service"
	"github.com/L1oneSs/AuthTemplate/internal/security"
	"github.com/L1oneSs/AuthTemplate/internal/server"
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

func (m *memUserRepo) passwordHash(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u.PasswordHash
	}
	return ""
}

type dropSender struct {
	ch chan string
}

func (d *dropSender) Send(_ context.Context, to, _, _, _ string) bool {
	select {
	case d.ch <- to:
	default:
	}
	return true
}

type fixture struct {
	router http.Handler
	repo   *memUserRepo
	codec  *security.IntegrityCodec
	tokens *security.TokenProvider
	sent   chan string
}

func newFixture(users ...*userdomain.User) *fixture {
	repo := newMemUserRepo(users...)
	creds := credential.NewStore(security.NewHasher(bcrypt.MinCost), repo)
	codec := security.NewIntegrityCodec("test-salt", 24*time.Hour)
	sent := make(chan string, 4)
	mailer := mail.NewRecoveryMailer(&dropSender{ch: sent}, "https://app.example.com")
	svc := service.NewRecoveryService(repo, creds, codec, mailer, zap.NewNop())
	tokens := security.NewTokenProvider([]byte("test-secret"), "auth-template", "auth-template-api", time.Hour, 24*time.Hour)
	sources := server.TokenSources{Headers: true}
	router := server.NewRouter(zap.NewNop(), tokens, sources, nil, New(svc, zap.NewNop()))
	return &fixture{router: router, repo: repo, codec: codec, tokens: tokens, sent: sent}
}

func alice() *userdomain.User {
	return &userdomain.User{
		ID:           1,
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: "$2a$04$notarealhash",
		IsActive:     true,
	}
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRequestResetEndpoint_GenericResponse(t *testing.T) {
	f := newFixture(alice())

	known := f.do(t, http.MethodPost, "/api/auth/reset-password", "", resetRequest{Email: "alice@example.com"})
	unknown := f.do(t, http.MethodPost, "/api/auth/reset-password", "", resetRequest{Email: "nobody@example.com"})

	// Known and unknown accounts must be indistinguishable in status and body.
	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("statuses: known %d, unknown %d", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Errorf("bodies differ: %q vs %q", known.Body.String(), unknown.Body.String())
	}

	missing := f.do(t, http.MethodPost, "/api/auth/reset-password", "", resetRequest{})
	if missing.Code != http.StatusBadRequest {
		t.Errorf("missing email: status %d, want 400", missing.Code)
	}
}

func TestCheckTokenEndpoint(t *testing.T) {
	f := newFixture(alice())
	token, err := f.codec.Issue(1, security.PurposeResetPassword, time.Time{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ok := f.do(t, http.MethodGet, "/api/auth/reset-password?token="+token, "", nil)
	if ok.Code != http.StatusOK {
		t.Fatalf("valid token: status %d, body %s", ok.Code, ok.Body.String())
	}
	var body struct {
		Valid bool `json:"valid"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(ok.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Valid || body.User.Email != "alice@example.com" {
		t.Errorf("body: %+v", body)
	}

	if rec := f.do(t, http.MethodGet, "/api/auth/reset-password", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing token: status %d, want 400", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/auth/reset-password?token=garbage", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("garbage token: status %d, want 400", rec.Code)
	}

	// A reset token is not valid on the set-password check.
	if rec := f.do(t, http.MethodGet, "/api/auth/set-password?token="+token, "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("purpose mismatch: status %d, want 400", rec.Code)
	}

	orphan, _ := f.codec.Issue(99, security.PurposeResetPassword, time.Time{})
	if rec := f.do(t, http.MethodGet, "/api/auth/reset-password?token="+orphan, "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("orphan token: status %d, want 404", rec.Code)
	}
}

func TestCompleteResetEndpoint(t *testing.T) {
	f := newFixture(alice())
	token, _ := f.codec.Issue(1, security.PurposeResetPassword, time.Time{})

	rec := f.do(t, http.MethodPut, "/api/auth/reset-password", "", completeRequest{
		Token: token, Password: "newsecret", ConfirmPassword: "newsecret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status %d, body %s", rec.Code, rec.Body.String())
	}
	if f.repo.passwordHash(1) == "$2a$04$notarealhash" {
		t.Error("password hash should have been replaced")
	}
}

func TestCompleteResetEndpoint_Failures(t *testing.T) {
	f := newFixture(alice())
	token, _ := f.codec.Issue(1, security.PurposeResetPassword, time.Time{})
	setToken, _ := f.codec.Issue(1, security.PurposeSetPassword, time.Time{})

	cases := []struct {
		name string
		body completeRequest
		want int
	}{
		{"mismatch", completeRequest{Token: token, Password: "newsecret", ConfirmPassword: "other"}, http.StatusBadRequest},
		{"weak", completeRequest{Token: token, Password: "abc", ConfirmPassword: "abc"}, http.StatusBadRequest},
		{"garbage token", completeRequest{Token: "garbage", Password: "newsecret", ConfirmPassword: "newsecret"}, http.StatusBadRequest},
		{"missing token", completeRequest{Password: "newsecret", ConfirmPassword: "newsecret"}, http.StatusBadRequest},
		{"wrong purpose", completeRequest{Token: setToken, Password: "newsecret", ConfirmPassword: "newsecret"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := f.do(t, http.MethodPut, "/api/auth/reset-password", "", tc.body); rec.Code != tc.want {
			t.Errorf("%s: status %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestSetPasswordEndpoint(t *testing.T) {
	f := newFixture(alice())
	token, _ := f.codec.Issue(1, security.PurposeSetPassword, time.Time{})

	rec := f.do(t, http.MethodPost, "/api/auth/set-password", "", completeRequest{
		Token: token, Password: "newsecret", ConfirmPassword: "newsecret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set password: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestSendEmailEndpoint(t *testing.T) {
	f := newFixture(alice())

	// Requires an access token.
	if rec := f.do(t, http.MethodPost, "/api/auth/send-email", "", sendEmailRequest{Email: "alice@example.com", EmailType: mail.KindResetPassword}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: status %d, want 401", rec.Code)
	}

	access, _, err := f.tokens.IssueAccess("sess-1", 1)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	ok := f.do(t, http.MethodPost, "/api/auth/send-email", access, sendEmailRequest{Email: "alice@example.com", EmailType: mail.KindSetPassword})
	if ok.Code != http.StatusOK {
		t.Fatalf("send email: status %d, body %s", ok.Code, ok.Body.String())
	}
	select {
	case to := <-f.sent:
		if to != "alice@example.com" {
			t.Errorf("recipient: %q", to)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	if rec := f.do(t, http.MethodPost, "/api/auth/send-email", access, sendEmailRequest{Email: "nobody@example.com", EmailType: mail.KindResetPassword}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown account: status %d, want 404", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/auth/send-email", access, sendEmailRequest{Email: "alice@example.com", EmailType: "newsletter"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad type: status %d, want 400", rec.Code)
	}
}

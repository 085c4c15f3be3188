package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/L1oneSs/AuthTemplate/internal/security"
)

func newTestTokens() *security.TokenProvider {
	return security.NewTokenProvider([]byte("test-secret"), "auth-template", "auth-template-api", time.Hour, 24*time.Hour)
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestRequireAuth_BearerHeader(t *testing.T) {
	tokens := newTestTokens()
	access, _, err := tokens.IssueAccess("sess-1", 42)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	var gotUserID int64
	var gotSessionID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserID(r.Context())
		gotSessionID, _ = SessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	mw := RequireAuth(tokens, TokenSources{Headers: true})(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if gotUserID != 42 || gotSessionID != "sess-1" {
		t.Errorf("identity: user %d session %q", gotUserID, gotSessionID)
	}
}

func TestRequireAuth_Cookie(t *testing.T) {
	tokens := newTestTokens()
	access, _, err := tokens.IssueAccess("sess-1", 42)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	next, called := okHandler()
	mw := RequireAuth(tokens, TokenSources{Cookies: true})(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: access})
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !*called {
		t.Errorf("status %d, called %v", rec.Code, *called)
	}
}

func TestRequireAuth_Rejections(t *testing.T) {
	tokens := newTestTokens()
	access, _, _ := tokens.IssueAccess("sess-1", 42)
	refresh, _, _ := tokens.IssueRefresh("sess-1", 42)

	cases := []struct {
		name    string
		sources TokenSources
		setup   func(*http.Request)
	}{
		{"no token", TokenSources{Headers: true, Cookies: true}, func(*http.Request) {}},
		{"garbage bearer", TokenSources{Headers: true}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer garbage")
		}},
		{"not bearer scheme", TokenSources{Headers: true}, func(r *http.Request) {
			r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		}},
		// A refresh token outlives the session it belongs to, so it must never
		// pass as an access credential.
		{"refresh token as bearer", TokenSources{Headers: true}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+refresh)
		}},
		{"refresh token in access cookie", TokenSources{Cookies: true}, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookieName, Value: refresh})
		}},
		{"header token with headers disabled", TokenSources{Cookies: true}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+access)
		}},
		{"cookie token with cookies disabled", TokenSources{Headers: true}, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookieName, Value: access})
		}},
	}
	for _, tc := range cases {
		next, called := okHandler()
		mw := RequireAuth(tokens, tc.sources)(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		tc.setup(req)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status %d, want 401", tc.name, rec.Code)
		}
		if *called {
			t.Errorf("%s: handler should not run", tc.name)
		}
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := extractBearer(tc.header); got != tc.want {
			t.Errorf("extractBearer(%q): got %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestTokenCookies_SetAndClear(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTokenCookies(rec, "access", "refresh", time.Now().Add(time.Hour), time.Now().Add(24*time.Hour))

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("cookies: got %d, want 2", len(cookies))
	}
	for _, c := range cookies {
		if !c.HttpOnly {
			t.Errorf("%s should be HttpOnly", c.Name)
		}
	}

	rec = httptest.NewRecorder()
	ClearTokenCookies(rec)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Errorf("%s should be expired", c.Name)
		}
	}
}

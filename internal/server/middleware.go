package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/L1oneSs/AuthTemplate/internal/security"
)

const bearerPrefix = "bearer "

// TokenSources selects where tokens are read from on incoming requests.
type TokenSources struct {
	Headers bool
	Cookies bool
}

// AccessToken returns the access token from the request, preferring the
// Authorization header over the cookie. Empty when absent.
func (s TokenSources) AccessToken(r *http.Request) string {
	if s.Headers {
		if token := extractBearer(r.Header.Get("Authorization")); token != "" {
			return token
		}
	}
	if s.Cookies {
		if c, err := r.Cookie(AccessCookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

// RefreshToken returns the refresh token cookie, or "" when cookies are off
// or unset. A token in the request body takes precedence; handlers check that
// first.
func (s TokenSources) RefreshToken(r *http.Request) string {
	if s.Cookies {
		if c, err := r.Cookie(RefreshCookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

// RequireAuth validates the access token and stores the caller's identity in
// the request context. Verification is stateless: signature and expiry only,
// no session lookup.
func RequireAuth(tokens *security.TokenProvider, sources TokenSources) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sources.AccessToken(r)
			if token == "" {
				RespondError(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			sessionID, userID, err := tokens.ValidateAccess(token)
			if err != nil {
				RespondError(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, sessionID)))
		})
	}
}

// extractBearer returns the token from an Authorization header value, or ""
// if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

// RequestLogger logs one line per request with method, path, status, and
// timing.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

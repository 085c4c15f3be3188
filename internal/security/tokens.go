package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or fails
	// signature/issuer/audience checks.
	ErrInvalidToken = errors.New("invalid token")
)

// Token type values carried in the "type" claim.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	TokenType string `json:"type"`
}

// RefreshClaims holds JWT claims for the refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	TokenType string `json:"type"`
}

// TokenProvider issues and validates JWT access and refresh tokens signed with
// HS256 using the process-wide secret. The two kinds carry a "type" claim and
// each Validate method refuses the other kind, so a long-lived refresh token
// can never stand in for an access token. Refresh tokens are additionally
// checked against the session registry by the auth service.
type TokenProvider struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given secret.
// issuer and audience are set on claims and validated on parse.
func NewTokenProvider(secret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		secret:     secret,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// RefreshTTL returns the configured refresh token lifetime. The session row's
// absolute expiry is derived from it.
func (p *TokenProvider) RefreshTTL() time.Duration {
	return p.refreshTTL
}

// IssueAccess issues a short-lived access JWT for the given session and user.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueAccess(sessionID string, userID int64) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		TokenType: tokenTypeAccess,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT bound to the given session.
// The token string is also the session row's unique lookup value, so each
// issuance must produce a distinct string; the random jti guarantees that.
func (p *TokenProvider) IssueRefresh(sessionID string, userID int64) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		TokenType: tokenTypeRefresh,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, expiresAt, err
}

// ValidateAccess parses and validates the access token (signature, exp, iss,
// aud, type). A refresh token fails here regardless of its remaining lifetime.
// Returns the session ID and user ID. It never consults storage.
func (p *TokenProvider) ValidateAccess(tokenString string) (sessionID string, userID int64, err error) {
	var claims AccessClaims
	if err := p.parse(tokenString, &claims); err != nil {
		return "", 0, err
	}
	if claims.TokenType != tokenTypeAccess {
		return "", 0, ErrInvalidToken
	}
	userID, perr := strconv.ParseInt(claims.Subject, 10, 64)
	if perr != nil {
		return "", 0, ErrInvalidToken
	}
	return claims.SessionID, userID, nil
}

// ValidateRefresh parses and validates the refresh token (signature, exp, iss,
// aud, type). Returns the session ID and user ID.
func (p *TokenProvider) ValidateRefresh(tokenString string) (sessionID string, userID int64, err error) {
	var claims RefreshClaims
	if err := p.parse(tokenString, &claims); err != nil {
		return "", 0, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return "", 0, ErrInvalidToken
	}
	userID, perr := strconv.ParseInt(claims.Subject, 10, 64)
	if perr != nil {
		return "", 0, ErrInvalidToken
	}
	return claims.SessionID, userID, nil
}

func (p *TokenProvider) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

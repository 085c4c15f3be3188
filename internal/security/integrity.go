package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Recovery token purposes. A token minted for one purpose never authorizes
// the other operation.
const (
	PurposeSetPassword   = "set_password"
	PurposeResetPassword = "reset_password"
)

var (
	// ErrTokenMalformed is returned when the token cannot be decoded or is
	// missing required fields.
	ErrTokenMalformed = errors.New("malformed recovery token")
	// ErrTokenExpired is returned when the token is older than the configured lifetime.
	ErrTokenExpired = errors.New("recovery token expired")
	// ErrTokenInvalid is returned when the digest does not match, i.e. the
	// payload was tampered with or was minted under a different salt.
	ErrTokenInvalid = errors.New("invalid recovery token")
)

// IntegrityCodec produces and verifies self-contained recovery tokens.
// A token carries the subject user id, a creation timestamp, a purpose tag,
// and a keyed digest over (user id, timestamp, salt). Validity is entirely
// computable from the token, the salt, and the clock; there is no stored
// state, so rotating the salt invalidates every outstanding token.
type IntegrityCodec struct {
	salt     string
	lifetime time.Duration
}

// integrityPayload is the wire form of a recovery token, JSON inside base64url.
type integrityPayload struct {
	ID        int64  `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Action    string `json:"action"`
	Key       string `json:"key"`
}

// NewIntegrityCodec returns a codec keyed with salt. lifetime bounds token
// age on Verify; zero or negative falls back to 24 hours.
func NewIntegrityCodec(salt string, lifetime time.Duration) *IntegrityCodec {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &IntegrityCodec{salt: salt, lifetime: lifetime}
}

// Issue mints a token for userID with the given purpose, stamped at issuedAt.
// A zero issuedAt means now. The result is an opaque base64url string safe to
// embed in links.
func (c *IntegrityCodec) Issue(userID int64, purpose string, issuedAt time.Time) (string, error) {
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	ts := issuedAt.Unix()
	p := integrityPayload{
		ID:        userID,
		Timestamp: ts,
		Action:    purpose,
		Key:       c.digest(userID, ts),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify decodes and checks the token against the clock value now.
// On success it returns the subject user id and the token's purpose.
// Failure kinds: ErrTokenMalformed (undecodable or missing fields),
// ErrTokenExpired (older than the lifetime), ErrTokenInvalid (digest mismatch).
func (c *IntegrityCodec) Verify(token string, now time.Time) (userID int64, purpose string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, "", ErrTokenMalformed
	}
	var p integrityPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0, "", ErrTokenMalformed
	}
	if p.ID == 0 || p.Timestamp == 0 || p.Key == "" {
		return 0, "", ErrTokenMalformed
	}
	if now.Unix()-p.Timestamp > int64(c.lifetime/time.Second) {
		return 0, "", ErrTokenExpired
	}
	expected := c.digest(p.ID, p.Timestamp)
	if subtle.ConstantTimeCompare([]byte(p.Key), []byte(expected)) != 1 {
		return 0, "", ErrTokenInvalid
	}
	return p.ID, p.Action, nil
}

func (c *IntegrityCodec) digest(userID int64, timestamp int64) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%d:%d:%s", userID, timestamp, c.salt))
	return hex.EncodeToString(h[:])
}

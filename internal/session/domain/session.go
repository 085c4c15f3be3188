package domain

import (
	"time"

	"github.com/L1oneSs/AuthTemplate/internal/device"
)

// Session is one login on one device. A session is Active until retired;
// retirement is terminal, a retired session is never reactivated. The refresh
// token value is globally unique and doubles as the rotation lookup key.
type Session struct {
	ID           string
	UserID       int64
	RefreshToken string
	IPAddress    string
	Fingerprint  device.Fingerprint
	ExpiresAt    time.Time
	IsActive     bool
	CreatedAt    time.Time
}

// Public is the session projection returned to the session-management UI.
// It never exposes the refresh token value.
type Public struct {
	ID          string             `json:"id"`
	IPAddress   string             `json:"ip_address,omitempty"`
	Fingerprint device.Fingerprint `json:"device"`
	ExpiresAt   time.Time          `json:"expires_at"`
	CreatedAt   time.Time          `json:"created_at"`
}

// PublicView returns the session's public projection.
func (s *Session) PublicView() Public {
	return Public{
		ID:          s.ID,
		IPAddress:   s.IPAddress,
		Fingerprint: s.Fingerprint,
		ExpiresAt:   s.ExpiresAt,
		CreatedAt:   s.CreatedAt,
	}
}

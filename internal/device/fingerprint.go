// Package device derives a client fingerprint from the User-Agent header.
// The fingerprint is passive session metadata: nothing keys off it, it only
// feeds the session list so users can recognize their own devices.
package device

import (
	ua "github.com/mileusna/useragent"
)

// Fingerprint describes the client that opened a session.
type Fingerprint struct {
	UserAgent      string `json:"user_agent"`
	BrowserFamily  string `json:"browser_family"`
	BrowserVersion string `json:"browser_version"`
	OSFamily       string `json:"os_family"`
	OSVersion      string `json:"os_version"`
	DeviceFamily   string `json:"device_family"`
	DeviceBrand    string `json:"device_brand"`
	DeviceModel    string `json:"device_model"`
	IsMobile       bool   `json:"is_mobile"`
	IsTablet       bool   `json:"is_tablet"`
	IsPC           bool   `json:"is_pc"`
	IsBot          bool   `json:"is_bot"`
}

// Parse extracts a Fingerprint from a raw User-Agent string. An empty or
// unrecognized value yields a zero fingerprint with only UserAgent set.
func Parse(userAgent string) Fingerprint {
	if userAgent == "" {
		return Fingerprint{}
	}
	parsed := ua.Parse(userAgent)
	return Fingerprint{
		UserAgent:      userAgent,
		BrowserFamily:  parsed.Name,
		BrowserVersion: parsed.Version,
		OSFamily:       parsed.OS,
		OSVersion:      parsed.OSVersion,
		DeviceFamily:   parsed.Device,
		DeviceBrand:    deviceBrand(parsed),
		DeviceModel:    parsed.Device,
		IsMobile:       parsed.Mobile,
		IsTablet:       parsed.Tablet,
		IsPC:           parsed.Desktop,
		IsBot:          parsed.Bot,
	}
}

// deviceBrand infers a vendor name from the parsed agent. The parser exposes
// a device string but no separate brand field, so the OS is the best signal.
func deviceBrand(parsed ua.UserAgent) string {
	switch {
	case parsed.IsIOS():
		return "Apple"
	case parsed.IsAndroid():
		return "Android"
	default:
		return ""
	}
}

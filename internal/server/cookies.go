package server

import (
	"net/http"
	"time"
)

// Cookie names for token transport when cookies are enabled.
const (
	AccessCookieName  = "access_token_cookie"
	RefreshCookieName = "refresh_token_cookie"
)

// SetTokenCookies stores the token pair in HttpOnly cookies.
func SetTokenCookies(w http.ResponseWriter, accessToken, refreshToken string, accessExp, refreshExp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		Expires:  refreshExp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookies expires both token cookies. Called on logout regardless
// of whether any session matched.
func ClearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

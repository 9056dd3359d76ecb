package handler

import (
	"net/http"
	"time"

	"github.com/shop-auth-api/internal/application/session"
)

// CookieConfig describes the session cookie. It is readable from scripts and
// sent cross-site, so Secure is required for browsers to accept it.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func (c CookieConfig) set(w http.ResponseWriter, tok *session.IssuedToken) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    tok.Token,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: false,
		Secure:   c.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// clear re-issues the cookie with zero lifetime.
func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: false,
		Secure:   c.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

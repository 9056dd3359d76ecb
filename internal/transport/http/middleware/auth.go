package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// MsgNotLoggedIn is the only body a gate rejection ever carries.
const MsgNotLoggedIn = "not logged in, try logging in again"

type TokenValidator interface {
	Validate(ctx context.Context, token string) (*session.Principal, error)
}

// Gate validates the session token and attaches the resulting principal to
// the request context. Every failure produces the same 401 response.
func Gate(v TokenValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, MsgNotLoggedIn)
				return
			}
			p, err := v.Validate(r.Context(), token)
			if err != nil {
				level := slog.LevelDebug
				if errors.Is(err, domain.ErrUpstreamUnavailable) {
					level = slog.LevelWarn
				}
				slog.Log(r.Context(), level, "session rejected", "error", err)
				writeJSONError(w, http.StatusUnauthorized, MsgNotLoggedIn)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *p)))
		})
	}
}

// TokenFromRequest reads the session cookie, falling back to a Bearer
// Authorization header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func WithPrincipal(ctx context.Context, p session.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached by Gate.
func PrincipalFromContext(ctx context.Context) (session.Principal, bool) {
	p, ok := ctx.Value(principalKey).(session.Principal)
	return p, ok
}

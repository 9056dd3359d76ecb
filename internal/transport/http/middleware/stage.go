package middleware

import (
	"errors"
	"net/http"

	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
)

// Require runs stage on the principal attached by Gate and passes its
// result downstream.
func Require(stage session.Stage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, MsgNotLoggedIn)
				return
			}
			p, err := stage(r.Context(), p)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
			case errors.Is(err, domain.ErrVerificationRequired):
				writeJSONError(w, http.StatusForbidden, "verify your email address to perform this action")
			case errors.Is(err, domain.ErrForbidden):
				writeJSONError(w, http.StatusForbidden, "forbidden")
			default:
				writeJSONError(w, http.StatusUnauthorized, MsgNotLoggedIn)
			}
		})
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shop-auth-api/internal/domain"
	"github.com/shop-auth-api/internal/pkg/validate"
	"github.com/shop-auth-api/internal/transport/http/middleware"
)

// httpError maps a service error to a status code. Authentication and
// upstream failures never carry detail to the client.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "incorrect email or password")
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, middleware.MsgNotLoggedIn)
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		slog.ErrorContext(r.Context(), "upstream unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable, try again later")
	case errors.Is(err, domain.ErrVerificationRequired):
		writeError(w, http.StatusForbidden, "verify your email address to perform this action")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		writeError(w, http.StatusBadRequest, "invalid or expired code")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid or expired reset link")
	case errors.Is(err, domain.ErrPreconditionFailed),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrNotFound):
		writeError(w, statusFor(err), err.Error())
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPreconditionFailed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusNotFound
	}
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the caller should continue.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

// principalID returns the authenticated principal or writes a 401.
func principalID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, middleware.MsgNotLoggedIn)
		return "", false
	}
	return p.Identity.UserID, true
}

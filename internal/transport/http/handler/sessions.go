package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shop-auth-api/internal/application/account"
	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
	"github.com/shop-auth-api/internal/transport/http/middleware"
)

// SessionHandler handles login, logout and the current-identity endpoint.
type SessionHandler struct {
	accounts account.Service
	sessions session.Service
	cookie   CookieConfig
}

func NewSessionHandler(accounts account.Service, sessions session.Service, cookie CookieConfig) *SessionHandler {
	return &SessionHandler{accounts: accounts, sessions: sessions, cookie: cookie}
}

type loginFunc func(ctx context.Context, req domain.LoginRequest) (*domain.PublicIdentity, *session.IssuedToken, error)

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.accounts.Login)
}

func (h *SessionHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.accounts.AdminLogin)
}

func (h *SessionHandler) login(w http.ResponseWriter, r *http.Request, fn loginFunc) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	user, tok, err := fn(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.cookie.set(w, tok)
	writeJSON(w, http.StatusOK, AuthEnvelope{Message: "logged in successfully", Token: tok.Token, User: user})
}

// Logout clears the cookie. When a revocation store is configured the
// presented token is also denylisted; failures there are logged only.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if tok := middleware.TokenFromRequest(r, h.cookie.Name); tok != "" {
		if err := h.sessions.Revoke(r.Context(), tok); err != nil {
			slog.WarnContext(r.Context(), "revoke token on logout failed", "error", err)
		}
	}
	h.cookie.clear(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out successfully"})
}

func (h *SessionHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}
	profile, err := h.accounts.Current(r.Context(), userID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	var env ProfileEnvelope
	env.Data.User = profile
	writeJSON(w, http.StatusOK, env)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shop-auth-api/internal/application/verification"
	"github.com/shop-auth-api/internal/transport/http/middleware"
)

// VerificationHandler handles the account verification endpoints.
type VerificationHandler struct {
	svc    verification.Service
	cookie CookieConfig
}

func NewVerificationHandler(svc verification.Service, cookie CookieConfig) *VerificationHandler {
	return &VerificationHandler{svc: svc, cookie: cookie}
}

// ownPath returns the path userID when it names the authenticated caller.
func ownPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, middleware.MsgNotLoggedIn)
		return "", false
	}
	userID := chi.URLParam(r, "userID")
	if userID != p.Identity.UserID {
		writeError(w, http.StatusForbidden, "cannot verify another account")
		return "", false
	}
	return userID, true
}

// Verify accepts either the short code or the link token in the path.
func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownPath(w, r)
	if !ok {
		return
	}
	user, tok, err := h.svc.Complete(r.Context(), userID, chi.URLParam(r, "token"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.cookie.set(w, tok)
	writeJSON(w, http.StatusOK, AuthEnvelope{Message: "account verified successfully", Token: tok.Token, User: user})
}

func (h *VerificationHandler) ReVerify(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownPath(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.Reinitiate(r.Context(), userID); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification email sent"})
}

// Check reports whether a verification link is still usable, without redeeming it.
func (h *VerificationHandler) Check(w http.ResponseWriter, r *http.Request) {
	valid, err := h.svc.Check(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "token"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckEnvelope{Valid: valid})
}

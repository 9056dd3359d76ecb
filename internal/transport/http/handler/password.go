package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shop-auth-api/internal/application/password"
	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
	"github.com/shop-auth-api/internal/transport/http/middleware"
)

// PasswordHandler handles forgot, reset and change password.
type PasswordHandler struct {
	svc      password.Service
	sessions session.Service
	cookie   CookieConfig
}

func NewPasswordHandler(svc password.Service, sessions session.Service, cookie CookieConfig) *PasswordHandler {
	return &PasswordHandler{svc: svc, sessions: sessions, cookie: cookie}
}

// Forgot answers the same way whether or not the email is registered.
func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "if the email is registered, a reset link has been sent"})
}

func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "token"), req.NewPassword); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset successfully, log in with the new password"})
}

// Change updates the password and replaces the caller's session, since the
// current token no longer validates once the password changes.
func (h *PasswordHandler) Change(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, middleware.MsgNotLoggedIn)
		return
	}
	var req domain.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), p.Identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		httpError(w, r, err)
		return
	}
	tok, err := h.sessions.Issue(r.Context(), p.Identity)
	if err != nil {
		slog.WarnContext(r.Context(), "reissue token after password change failed", "user_id", p.Identity.UserID, "error", err)
		h.cookie.clear(w)
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed successfully, log in again"})
		return
	}
	h.cookie.set(w, tok)
	writeJSON(w, http.StatusOK, AuthEnvelope{Message: "password changed successfully", Token: tok.Token, User: &p.Identity})
}

func (h *PasswordHandler) CheckReset(w http.ResponseWriter, r *http.Request) {
	valid, err := h.svc.CheckReset(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "token"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckEnvelope{Valid: valid})
}

package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/shop-auth-api/internal/application/account"
	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/application/verification"
	"github.com/shop-auth-api/internal/domain"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the avatar itself.
const multipartOverhead = 64 << 10

// AccountHandler handles registration and the self-service account endpoints.
type AccountHandler struct {
	accounts       account.Service
	verification   verification.Service
	sessions       session.Service
	cookie         CookieConfig
	avatarMaxBytes int64
}

func NewAccountHandler(
	accounts account.Service,
	verification verification.Service,
	sessions session.Service,
	cookie CookieConfig,
	avatarMaxBytes int64,
) *AccountHandler {
	return &AccountHandler{
		accounts:       accounts,
		verification:   verification,
		sessions:       sessions,
		cookie:         cookie,
		avatarMaxBytes: avatarMaxBytes,
	}
}

// Register creates the account and starts verification. A delivery failure
// does not undo the registration; the response reports it instead.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	user, tok, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	sent := true
	if _, err := h.verification.Initiate(r.Context(), user.UserID); err != nil {
		slog.WarnContext(r.Context(), "initiate verification after register failed", "user_id", user.UserID, "error", err)
		sent = false
	}
	h.cookie.set(w, tok)
	writeJSON(w, http.StatusCreated, AuthEnvelope{
		Message:          "account created successfully",
		Token:            tok.Token,
		User:             user,
		VerificationSent: &sent,
	})
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.accounts.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.refresh(w, r, user)
	writeJSON(w, http.StatusOK, UserEnvelope{Message: "profile updated successfully", User: user})
}

func (h *AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.avatarMaxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.avatarMaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing avatar field")
		return
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		writeError(w, http.StatusBadRequest, "unreadable avatar")
		return
	}
	head = head[:n]

	user, err := h.accounts.UpdateAvatar(r.Context(), userID, account.Avatar{
		Body:        io.MultiReader(bytes.NewReader(head), f),
		Size:        header.Size,
		ContentType: http.DetectContentType(head),
		Filename:    header.Filename,
	})
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{Message: "avatar updated successfully", User: user})
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalID(w, r)
	if !ok {
		return
	}
	var req domain.DeleteAccountRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.accounts.Delete(r.Context(), userID, req.Password); err != nil {
		httpError(w, r, err)
		return
	}
	h.cookie.clear(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted successfully"})
}

// refresh reissues the session cookie after the identity changed. The old
// token stays valid until it expires, so a failure here is not fatal.
func (h *AccountHandler) refresh(w http.ResponseWriter, r *http.Request, user *domain.PublicIdentity) {
	tok, err := h.sessions.Issue(r.Context(), *user)
	if err != nil {
		slog.WarnContext(r.Context(), "reissue token after update failed", "user_id", user.UserID, "error", err)
		return
	}
	h.cookie.set(w, tok)
}

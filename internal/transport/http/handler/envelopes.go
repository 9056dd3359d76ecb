package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shop-auth-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps responses that establish or refresh a session.
type AuthEnvelope struct {
	Message          string                 `json:"message,omitempty"`
	Token            string                 `json:"token,omitempty"`
	User             *domain.PublicIdentity `json:"user,omitempty"`
	VerificationSent *bool                  `json:"verification_sent,omitempty"`
}

// UserEnvelope wraps a profile update result.
type UserEnvelope struct {
	Message string                 `json:"message,omitempty"`
	User    *domain.PublicIdentity `json:"user"`
}

// ProfileEnvelope wraps the current-user response.
type ProfileEnvelope struct {
	Data struct {
		User *domain.Profile `json:"user"`
	} `json:"data"`
}

// CheckEnvelope reports whether a one-time link is still usable.
type CheckEnvelope struct {
	Valid bool `json:"valid"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

package domain

import "time"

// Purpose separates the two artifact families. At most one artifact is
// active per user and purpose.
type Purpose string

const (
	PurposeVerification Purpose = "verification"
	PurposeReset        Purpose = "reset"
)

// Artifact is the stored form of a one-time verification artifact.
// PK: user_id, SK: purpose. Only hashes of the code and token are kept.
// ExpiresAt is a Unix timestamp checked lazily on consumption. Attempts
// counts presentations; the artifact is burned once it reaches the limit.
type Artifact struct {
	UserID    string  `json:"user_id" dynamodbav:"user_id"`
	Purpose   Purpose `json:"purpose" dynamodbav:"purpose"`
	CodeHash  string  `json:"-" dynamodbav:"code_hash"`
	TokenHash string  `json:"-" dynamodbav:"token_hash"`
	ExpiresAt int64   `json:"expires_at" dynamodbav:"expires_at"`
	Attempts  int     `json:"-" dynamodbav:"attempts"`
}

// Expired reports whether the artifact is past its window at now.
func (a *Artifact) Expired(now time.Time) bool {
	return now.Unix() >= a.ExpiresAt
}

// IssuedArtifact is the plaintext (code, token) pair handed to the notifier.
// It is never persisted.
type IssuedArtifact struct {
	UserID    string
	Purpose   Purpose
	Code      string
	Token     string
	ExpiresAt time.Time
}

// VerificationState is derived from the verified flag and the presence of an
// active verification artifact.
type VerificationState string

const (
	StateUnverified          VerificationState = "unverified"
	StatePendingVerification VerificationState = "pending_verification"
	StateVerified            VerificationState = "verified"
)

// NotificationKind selects the message template used by the notifier.
type NotificationKind string

const (
	NotifyAccountVerification NotificationKind = "account_verification"
	NotifyVerificationResend  NotificationKind = "verification_resend"
	NotifyPasswordReset       NotificationKind = "password_reset"
)

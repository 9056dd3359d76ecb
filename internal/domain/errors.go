package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrValidation           = errors.New("validation failed")
	ErrVerificationRequired = errors.New("verification required")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrPreconditionFailed   = errors.New("precondition failed")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
)

// Token failure kinds. Each one is an ErrUnauthenticated so the gate can
// collapse them without inspecting which kind occurred.
var (
	ErrTokenMalformed     = fmt.Errorf("token malformed: %w", ErrUnauthenticated)
	ErrTokenExpired       = fmt.Errorf("token expired: %w", ErrUnauthenticated)
	ErrStalePassword      = fmt.Errorf("password changed after token was issued: %w", ErrUnauthenticated)
	ErrTokenRevoked       = fmt.Errorf("token revoked: %w", ErrUnauthenticated)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
)

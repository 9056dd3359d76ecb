package http

import (
	"context"
	"io"
	"time"

	"github.com/shop-auth-api/internal/application/notification"
	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
	appmiddleware "github.com/shop-auth-api/internal/transport/http/middleware"
)

// UserRepository is the user store the router wires into every service.
// Both the DynamoDB and the in-memory backends satisfy it.
type UserRepository interface {
	Create(ctx context.Context, u *domain.Identity) error
	Get(ctx context.Context, userID string) (*domain.PublicIdentity, error)
	GetByEmail(ctx context.Context, email string) (*domain.PublicIdentity, error)
	GetCredentials(ctx context.Context, userID string) (*domain.Identity, error)
	GetCredentialsByEmail(ctx context.Context, email string) (*domain.Identity, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID string) error
}

// VerificationRepository stores one-time artifacts keyed by user and purpose.
type VerificationRepository interface {
	Put(ctx context.Context, a *domain.Artifact) error
	Get(ctx context.Context, userID string, purpose domain.Purpose) (*domain.Artifact, error)
	ConsumeMatching(ctx context.Context, userID string, purpose domain.Purpose, hash string, now time.Time) (bool, error)
	Attempt(ctx context.Context, userID string, purpose domain.Purpose, maxAttempts int, now time.Time) (bool, error)
	Delete(ctx context.Context, userID string, purpose domain.Purpose) error
}

// CartRepository is read-only; carts are owned by another service.
type CartRepository interface {
	ItemsCount(ctx context.Context, userID string) (int, error)
}

// ObjectStore holds avatar images.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	DeleteURL(ctx context.Context, url string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         UserRepository
	VerificationRepo VerificationRepository
	CartRepo         CartRepository
	Avatars          ObjectStore
	Mailer           notification.Mailer
	Tokens           session.TokenSigner
	Revoker          session.Revoker // nil disables logout revocation
	RateLimiter      *appmiddleware.RateLimiter
	Now              func() time.Time
}

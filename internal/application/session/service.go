package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shop-auth-api/internal/domain"
	jwtinfra "github.com/shop-auth-api/internal/infrastructure/jwt"
)

// Principal is the authenticated request context: the current safe view of
// the identity plus the token it was established with.
type Principal struct {
	Identity  domain.PublicIdentity
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a freshly signed session token.
type IssuedToken struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

type UserStore interface {
	GetCredentials(ctx context.Context, userID string) (*domain.Identity, error)
}

type TokenSigner interface {
	Sign(c *jwtinfra.Claims) (string, error)
	Verify(token string, at time.Time) (*jwtinfra.Claims, error)
}

// Revoker is the optional per-token denylist.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Service interface {
	Issue(ctx context.Context, identity domain.PublicIdentity) (*IssuedToken, error)
	Validate(ctx context.Context, token string) (*Principal, error)
	Revoke(ctx context.Context, token string) error
}

type ServiceDeps struct {
	UserRepo UserStore
	Tokens   TokenSigner
	Revoker  Revoker // nil disables per-token revocation
	TTL      time.Duration
	Now      func() time.Time
}

type service struct {
	users   UserStore
	tokens  TokenSigner
	revoker Revoker
	ttl     time.Duration
	now     func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:   deps.UserRepo,
		tokens:  deps.Tokens,
		revoker: deps.Revoker,
		ttl:     deps.TTL,
		now:     now,
	}
}

func (s *service) Issue(_ context.Context, identity domain.PublicIdentity) (*IssuedToken, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	jti := uuid.NewString()
	signed, err := s.tokens.Sign(&jwtinfra.Claims{
		UserID:     identity.UserID,
		Email:      identity.Email,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Role:       identity.Role,
		Verified:   identity.Verified,
		IssuedAtMs: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Token: signed, TokenID: jti, ExpiresAt: exp}, nil
}

// Validate verifies the token and reloads the identity it names. The result
// reflects the store's current state, not the claims.
func (s *service) Validate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Verify(token, s.now())
	if err != nil {
		return nil, err
	}
	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, domain.ErrTokenRevoked
		}
	}

	u, err := s.users.GetCredentials(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown subject: %w", domain.ErrTokenMalformed)
		}
		return nil, err
	}
	issuedAt := issuedAt(claims)
	if u.PasswordChangedAfter(issuedAt) {
		return nil, domain.ErrStalePassword
	}

	p := &Principal{Identity: u.Public(), TokenID: claims.ID, IssuedAt: issuedAt}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// Revoke denylists a still-valid token until its expiry. Invalid tokens and a
// missing denylist are no-ops.
func (s *service) Revoke(ctx context.Context, token string) error {
	if s.revoker == nil || token == "" {
		return nil
	}
	claims, err := s.tokens.Verify(token, s.now())
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func issuedAt(c *jwtinfra.Claims) time.Time {
	if c.IssuedAtMs > 0 {
		return time.UnixMilli(c.IssuedAtMs)
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

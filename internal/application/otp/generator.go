// Package otp issues and redeems one-time verification artifacts: a short
// numeric code and an opaque link token that share one expiry window.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shop-auth-api/internal/domain"
	"github.com/shop-auth-api/internal/pkg/token"
)

type Store interface {
	Put(ctx context.Context, a *domain.Artifact) error
	Get(ctx context.Context, userID string, purpose domain.Purpose) (*domain.Artifact, error)
	ConsumeMatching(ctx context.Context, userID string, purpose domain.Purpose, hash string, now time.Time) (bool, error)
	Attempt(ctx context.Context, userID string, purpose domain.Purpose, maxAttempts int, now time.Time) (bool, error)
	Delete(ctx context.Context, userID string, purpose domain.Purpose) error
}

// DefaultMaxAttempts applies when Config.MaxAttempts is not set.
const DefaultMaxAttempts = 5

type Config struct {
	Digits          int
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	// MaxAttempts bounds how often one artifact may be presented, right or
	// wrong, before it is burned.
	MaxAttempts int
	Now         func() time.Time
}

type Generator struct {
	store       Store
	digits      int
	ttl         map[domain.Purpose]time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewGenerator(store Store, cfg Config) *Generator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		store:  store,
		digits: cfg.Digits,
		ttl: map[domain.Purpose]time.Duration{
			domain.PurposeVerification: cfg.VerificationTTL,
			domain.PurposeReset:        cfg.ResetTTL,
		},
		maxAttempts: maxAttempts,
		now:         now,
	}
}

// Issue creates a fresh artifact for (userID, purpose), replacing any
// previous one. The plaintext values are returned once and never stored.
func (g *Generator) Issue(ctx context.Context, userID string, purpose domain.Purpose) (*domain.IssuedArtifact, error) {
	ttl, ok := g.ttl[purpose]
	if !ok || ttl <= 0 {
		return nil, fmt.Errorf("no expiry window configured for purpose %q", purpose)
	}
	code, err := token.NewNumericCode(g.digits)
	if err != nil {
		return nil, err
	}
	opaque, err := token.NewOpaque()
	if err != nil {
		return nil, err
	}
	expires := g.now().Add(ttl)
	if err := g.store.Put(ctx, &domain.Artifact{
		UserID:    userID,
		Purpose:   purpose,
		CodeHash:  token.Hash(code),
		TokenHash: token.Hash(opaque),
		ExpiresAt: expires.Unix(),
	}); err != nil {
		return nil, err
	}
	return &domain.IssuedArtifact{
		UserID:    userID,
		Purpose:   purpose,
		Code:      code,
		Token:     opaque,
		ExpiresAt: expires,
	}, nil
}

// Consume redeems presented (code or token) and clears the artifact in the
// same store operation. It returns false on mismatch, expiry, absence or an
// exhausted attempt budget; the error is reserved for store failures.
func (g *Generator) Consume(ctx context.Context, userID string, purpose domain.Purpose, presented string) (bool, error) {
	if presented == "" {
		return false, nil
	}
	if ok, err := g.attempt(ctx, userID, purpose); !ok || err != nil {
		return false, err
	}
	return g.store.ConsumeMatching(ctx, userID, purpose, token.Hash(presented), g.now())
}

// Check reports whether presented would currently be accepted, without
// consuming it. Every check spends one attempt.
func (g *Generator) Check(ctx context.Context, userID string, purpose domain.Purpose, presented string) (bool, error) {
	if presented == "" {
		return false, nil
	}
	if ok, err := g.attempt(ctx, userID, purpose); !ok || err != nil {
		return false, err
	}
	a, err := g.active(ctx, userID, purpose)
	if err != nil || a == nil {
		return false, err
	}
	h := token.Hash(presented)
	return token.Equal(h, a.CodeHash) || token.Equal(h, a.TokenHash), nil
}

// Active reports whether an unexpired artifact with attempts left exists.
func (g *Generator) Active(ctx context.Context, userID string, purpose domain.Purpose) (bool, error) {
	a, err := g.active(ctx, userID, purpose)
	if err != nil || a == nil {
		return false, err
	}
	return a.Attempts < g.maxAttempts, nil
}

func (g *Generator) Discard(ctx context.Context, userID string, purpose domain.Purpose) error {
	return g.store.Delete(ctx, userID, purpose)
}

// attempt spends one presentation before any comparison happens.
func (g *Generator) attempt(ctx context.Context, userID string, purpose domain.Purpose) (bool, error) {
	return g.store.Attempt(ctx, userID, purpose, g.maxAttempts, g.now())
}

func (g *Generator) active(ctx context.Context, userID string, purpose domain.Purpose) (*domain.Artifact, error) {
	a, err := g.store.Get(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if a.Expired(g.now()) {
		return nil, nil
	}
	return a, nil
}

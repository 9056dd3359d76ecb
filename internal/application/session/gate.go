package session

import (
	"context"
	"slices"

	"github.com/shop-auth-api/internal/domain"
)

// Stage is one step of the session gate. It receives the principal built so
// far and either passes it on (possibly enriched) or rejects the request.
type Stage func(ctx context.Context, p Principal) (Principal, error)

// Pipeline runs stages in order and stops at the first failure.
func Pipeline(stages ...Stage) Stage {
	return func(ctx context.Context, p Principal) (Principal, error) {
		var err error
		for _, st := range stages {
			if p, err = st(ctx, p); err != nil {
				return Principal{}, err
			}
		}
		return p, nil
	}
}

// RequireVerified rejects principals whose account is not verified.
func RequireVerified(_ context.Context, p Principal) (Principal, error) {
	if !p.Identity.Verified {
		return Principal{}, domain.ErrVerificationRequired
	}
	return p, nil
}

// RequireRole rejects principals whose role is not one of roles.
func RequireRole(roles ...string) Stage {
	return func(_ context.Context, p Principal) (Principal, error) {
		if !slices.Contains(roles, p.Identity.Role) {
			return Principal{}, domain.ErrForbidden
		}
		return p, nil
	}
}

package verification

import (
	"context"
	"fmt"

	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
)

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.PublicIdentity, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type CodeIssuer interface {
	Issue(ctx context.Context, userID string, purpose domain.Purpose) (*domain.IssuedArtifact, error)
	Consume(ctx context.Context, userID string, purpose domain.Purpose, presented string) (bool, error)
	Check(ctx context.Context, userID string, purpose domain.Purpose, presented string) (bool, error)
	Active(ctx context.Context, userID string, purpose domain.Purpose) (bool, error)
}

type Notifier interface {
	Send(ctx context.Context, kind domain.NotificationKind, to domain.PublicIdentity, artifact domain.IssuedArtifact) error
}

type TokenIssuer interface {
	Issue(ctx context.Context, identity domain.PublicIdentity) (*session.IssuedToken, error)
}

// Service drives an account from unverified to verified.
type Service interface {
	Initiate(ctx context.Context, userID string) (*domain.IssuedArtifact, error)
	Reinitiate(ctx context.Context, userID string) (*domain.IssuedArtifact, error)
	Complete(ctx context.Context, userID, presented string) (*domain.PublicIdentity, *session.IssuedToken, error)
	State(ctx context.Context, userID string) (domain.VerificationState, error)
	Check(ctx context.Context, userID, presented string) (bool, error)
}

type ServiceDeps struct {
	UserRepo UserStore
	Codes    CodeIssuer
	Notifier Notifier
	Sessions TokenIssuer
}

type service struct {
	users    UserStore
	codes    CodeIssuer
	notifier Notifier
	sessions TokenIssuer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:    deps.UserRepo,
		codes:    deps.Codes,
		notifier: deps.Notifier,
		sessions: deps.Sessions,
	}
}

func (s *service) Initiate(ctx context.Context, userID string) (*domain.IssuedArtifact, error) {
	return s.issue(ctx, userID, domain.NotifyAccountVerification)
}

// Reinitiate replaces the pending artifact. Only the newest one is consumable.
func (s *service) Reinitiate(ctx context.Context, userID string) (*domain.IssuedArtifact, error) {
	return s.issue(ctx, userID, domain.NotifyVerificationResend)
}

func (s *service) issue(ctx context.Context, userID string, kind domain.NotificationKind) (*domain.IssuedArtifact, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return nil, fmt.Errorf("account already verified: %w", domain.ErrPreconditionFailed)
	}
	a, err := s.codes.Issue(ctx, userID, domain.PurposeVerification)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.Send(ctx, kind, *u, *a); err != nil {
		return nil, err
	}
	return a, nil
}

// Complete redeems presented, marks the account verified and issues a session
// token that carries the new verified flag.
func (s *service) Complete(ctx context.Context, userID, presented string) (*domain.PublicIdentity, *session.IssuedToken, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if u.Verified {
		return nil, nil, fmt.Errorf("account already verified: %w", domain.ErrPreconditionFailed)
	}
	ok, err := s.codes.Consume(ctx, userID, domain.PurposeVerification, presented)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, domain.ErrInvalidOrExpiredCode
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{"is_account_verified": true}); err != nil {
		return nil, nil, err
	}
	u, err = s.users.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	tok, err := s.sessions.Issue(ctx, *u)
	if err != nil {
		return nil, nil, err
	}
	return u, tok, nil
}

func (s *service) State(ctx context.Context, userID string) (domain.VerificationState, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.state(ctx, u)
}

func (s *service) state(ctx context.Context, u *domain.PublicIdentity) (domain.VerificationState, error) {
	if u.Verified {
		return domain.StateVerified, nil
	}
	pending, err := s.codes.Active(ctx, u.UserID, domain.PurposeVerification)
	if err != nil {
		return "", err
	}
	if pending {
		return domain.StatePendingVerification, nil
	}
	return domain.StateUnverified, nil
}

// Check reports whether presented is a live verification artifact for
// userID without consuming it.
func (s *service) Check(ctx context.Context, userID, presented string) (bool, error) {
	return s.codes.Check(ctx, userID, domain.PurposeVerification, presented)
}

package password

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shop-auth-api/internal/domain"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.PublicIdentity, error)
	GetCredentials(ctx context.Context, userID string) (*domain.Identity, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type CodeIssuer interface {
	Issue(ctx context.Context, userID string, purpose domain.Purpose) (*domain.IssuedArtifact, error)
	Consume(ctx context.Context, userID string, purpose domain.Purpose, presented string) (bool, error)
	Check(ctx context.Context, userID string, purpose domain.Purpose, presented string) (bool, error)
	Discard(ctx context.Context, userID string, purpose domain.Purpose) error
}

type Notifier interface {
	Send(ctx context.Context, kind domain.NotificationKind, to domain.PublicIdentity, artifact domain.IssuedArtifact) error
}

type Hasher interface {
	Hash(secret string) (string, error)
	Matches(hash, secret string) bool
}

type Service interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID, presented, newPassword string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	CheckReset(ctx context.Context, userID, presented string) (bool, error)
}

type ServiceDeps struct {
	UserRepo UserStore
	Codes    CodeIssuer
	Notifier Notifier
	Hasher   Hasher
	Now      func() time.Time
}

type service struct {
	users    UserStore
	codes    CodeIssuer
	notifier Notifier
	hasher   Hasher
	now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:    deps.UserRepo,
		codes:    deps.Codes,
		notifier: deps.Notifier,
		hasher:   deps.Hasher,
		now:      now,
	}
}

// ForgotPassword sends a reset artifact to the account registered under
// email. An unknown email succeeds without sending anything.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.DebugContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return err
	}
	a, err := s.codes.Issue(ctx, u.UserID, domain.PurposeReset)
	if err != nil {
		return err
	}
	return s.notifier.Send(ctx, domain.NotifyPasswordReset, *u, *a)
}

func (s *service) ResetPassword(ctx context.Context, userID, presented, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.codes.Consume(ctx, userID, domain.PurposeReset, presented)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no valid reset in progress: %w", domain.ErrUnauthorized)
	}
	return s.storePassword(ctx, userID, hash)
}

func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.users.GetCredentials(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Matches(u.PasswordHash, currentPassword) {
		return fmt.Errorf("incorrect current password: %w", domain.ErrPreconditionFailed)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.storePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.codes.Discard(ctx, userID, domain.PurposeReset); err != nil {
		slog.WarnContext(ctx, "discard pending reset failed", "user_id", userID, "error", err)
	}
	return nil
}

func (s *service) CheckReset(ctx context.Context, userID, presented string) (bool, error) {
	return s.codes.Check(ctx, userID, domain.PurposeReset, presented)
}

// storePassword writes the hash and the change timestamp in one update, so
// every token issued before now stops validating together with the new hash.
func (s *service) storePassword(ctx context.Context, userID, hash string) error {
	return s.users.Update(ctx, userID, map[string]interface{}{
		"password_hash":       hash,
		"password_changed_at": s.now().UTC(),
	})
}

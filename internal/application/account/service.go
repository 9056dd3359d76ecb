package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
	"github.com/shop-auth-api/internal/pkg/id"
)

// dummyHash is a well-formed bcrypt hash at the default cost. Comparing
// against it costs as much as checking a real account.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type UserStore interface {
	Create(ctx context.Context, u *domain.Identity) error
	Get(ctx context.Context, userID string) (*domain.PublicIdentity, error)
	GetByEmail(ctx context.Context, email string) (*domain.PublicIdentity, error)
	GetCredentials(ctx context.Context, userID string) (*domain.Identity, error)
	GetCredentialsByEmail(ctx context.Context, email string) (*domain.Identity, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID string) error
}

type CartStore interface {
	ItemsCount(ctx context.Context, userID string) (int, error)
}

type ArtifactDiscarder interface {
	Discard(ctx context.Context, userID string, purpose domain.Purpose) error
}

type StateReader interface {
	State(ctx context.Context, userID string) (domain.VerificationState, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, identity domain.PublicIdentity) (*session.IssuedToken, error)
}

type Hasher interface {
	Hash(secret string) (string, error)
	Matches(hash, secret string) bool
}

type AvatarStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	DeleteURL(ctx context.Context, url string) error
}

// Avatar is an uploaded profile image.
type Avatar struct {
	Body        io.Reader
	Size        int64
	ContentType string
	Filename    string
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.PublicIdentity, *session.IssuedToken, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.PublicIdentity, *session.IssuedToken, error)
	AdminLogin(ctx context.Context, req domain.LoginRequest) (*domain.PublicIdentity, *session.IssuedToken, error)
	Current(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.PublicIdentity, error)
	UpdateAvatar(ctx context.Context, userID string, avatar Avatar) (*domain.PublicIdentity, error)
	Delete(ctx context.Context, userID, password string) error
}

type ServiceDeps struct {
	UserRepo       UserStore
	CartRepo       CartStore
	Artifacts      ArtifactDiscarder
	States         StateReader
	Sessions       TokenIssuer
	Hasher         Hasher
	Avatars        AvatarStore
	AvatarMaxBytes int64
	Now            func() time.Time
}

type service struct {
	users          UserStore
	carts          CartStore
	artifacts      ArtifactDiscarder
	states         StateReader
	sessions       TokenIssuer
	hasher         Hasher
	avatars        AvatarStore
	avatarMaxBytes int64
	now            func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:          deps.UserRepo,
		carts:          deps.CartRepo,
		artifacts:      deps.Artifacts,
		states:         deps.States,
		sessions:       deps.Sessions,
		hasher:         deps.Hasher,
		avatars:        deps.Avatars,
		avatarMaxBytes: deps.AvatarMaxBytes,
		now:            now,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.PublicIdentity, *session.IssuedToken, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	u := &domain.Identity{
		UserID:       id.New(),
		Email:        normalizeEmail(req.Email),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         domain.RoleUser,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, nil, err
	}
	pub := u.Public()
	tok, err := s.sessions.Issue(ctx, pub)
	if err != nil {
		return nil, nil, err
	}
	return &pub, tok, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.PublicIdentity, *session.IssuedToken, error) {
	u, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, nil, err
	}
	return s.issue(ctx, u)
}

// AdminLogin is Login restricted to the admin role. A non-admin account gets
// the same error as a wrong password.
func (s *service) AdminLogin(ctx context.Context, req domain.LoginRequest) (*domain.PublicIdentity, *session.IssuedToken, error) {
	u, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, nil, err
	}
	if u.Role != domain.RoleAdmin {
		return nil, nil, domain.ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

func (s *service) authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	u, err := s.users.GetCredentialsByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Same bcrypt work as a real check, so timing does not reveal
			// whether the email exists.
			s.hasher.Matches(dummyHash, password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Matches(u.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return u, nil
}

func (s *service) issue(ctx context.Context, u *domain.Identity) (*domain.PublicIdentity, *session.IssuedToken, error) {
	pub := u.Public()
	tok, err := s.sessions.Issue(ctx, pub)
	if err != nil {
		return nil, nil, err
	}
	return &pub, tok, nil
}

func (s *service) Current(ctx context.Context, userID string) (*domain.Profile, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	state, err := s.states.State(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.carts.ItemsCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.Profile{PublicIdentity: *u, VerificationState: state, CartItemsCount: count}, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.PublicIdentity, error) {
	updates := map[string]interface{}{}
	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) != "" {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil && strings.TrimSpace(*req.LastName) != "" {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil && *req.Email != "" {
		email := normalizeEmail(*req.Email)
		other, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && other.UserID != userID:
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		updates["email"] = email
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrValidation)
	}
	if err := s.users.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, userID)
}

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (s *service) UpdateAvatar(ctx context.Context, userID string, avatar Avatar) (*domain.PublicIdentity, error) {
	if !strings.HasPrefix(avatar.ContentType, "image/") {
		return nil, fmt.Errorf("invalid image: %w", domain.ErrValidation)
	}
	if avatar.Size <= 0 || avatar.Size > s.avatarMaxBytes {
		return nil, fmt.Errorf("image size must be between 1 and %d bytes: %w", s.avatarMaxBytes, domain.ErrValidation)
	}
	prev, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	ext, ok := imageExt[avatar.ContentType]
	if !ok {
		ext = strings.ToLower(path.Ext(avatar.Filename))
	}
	key := fmt.Sprintf("avatars/user-%s-%d%s", userID, s.now().UnixMilli(), ext)
	url, err := s.avatars.Upload(ctx, key, avatar.Body, avatar.Size, avatar.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{"avatar_url": url}); err != nil {
		return nil, err
	}
	if prev.AvatarURL != "" {
		if err := s.avatars.DeleteURL(ctx, prev.AvatarURL); err != nil {
			slog.WarnContext(ctx, "delete previous avatar failed", "user_id", userID, "error", err)
		}
	}
	return s.users.Get(ctx, userID)
}

// Delete removes the account after re-checking the password. Accounts with
// items in their cart cannot be deleted.
func (s *service) Delete(ctx context.Context, userID, password string) error {
	u, err := s.users.GetCredentials(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Matches(u.PasswordHash, password) {
		return fmt.Errorf("incorrect current password: %w", domain.ErrPreconditionFailed)
	}
	count, err := s.carts.ItemsCount(ctx, userID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("clear your shopping cart before deleting the account: %w", domain.ErrPreconditionFailed)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	for _, p := range []domain.Purpose{domain.PurposeVerification, domain.PurposeReset} {
		if err := s.artifacts.Discard(ctx, userID, p); err != nil {
			slog.WarnContext(ctx, "discard artifact after delete failed", "user_id", userID, "purpose", p, "error", err)
		}
	}
	if u.AvatarURL != "" {
		if err := s.avatars.DeleteURL(ctx, u.AvatarURL); err != nil {
			slog.WarnContext(ctx, "delete avatar after account delete failed", "user_id", userID, "error", err)
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

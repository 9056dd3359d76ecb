// Package memory provides in-process store backends. They back the
// "memory" STORE_BACKEND and the handler tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shop-auth-api/internal/domain"
)

// UserStore keeps identities keyed by user id.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.Identity
	now   func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.Identity), now: time.Now}
}

func (s *UserStore) Create(_ context.Context, u *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.UserID]; ok {
		return fmt.Errorf("user id already exists: %w", domain.ErrConflict)
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
	}
	s.users[u.UserID] = *u
	return nil
}

func (s *UserStore) Get(ctx context.Context, userID string) (*domain.PublicIdentity, error) {
	u, err := s.GetCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := u.Public()
	return &p, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.PublicIdentity, error) {
	u, err := s.GetCredentialsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	p := u.Public()
	return &p, nil
}

func (s *UserStore) GetCredentials(_ context.Context, userID string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (s *UserStore) GetCredentialsByEmail(_ context.Context, email string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

// Update applies the same attribute names the DynamoDB backend writes.
func (s *UserStore) Update(_ context.Context, userID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no fields to update")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	for k, v := range updates {
		if err := apply(&u, k, v); err != nil {
			return err
		}
	}
	u.UpdatedAt = s.now().UTC()
	s.users[userID] = u
	return nil
}

func (s *UserStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

func apply(u *domain.Identity, field string, v interface{}) error {
	var ok bool
	switch field {
	case "email":
		u.Email, ok = v.(string)
	case "first_name":
		u.FirstName, ok = v.(string)
	case "last_name":
		u.LastName, ok = v.(string)
	case "role":
		u.Role, ok = v.(string)
	case "password_hash":
		u.PasswordHash, ok = v.(string)
	case "avatar_url":
		u.AvatarURL, ok = v.(string)
	case "is_account_verified":
		u.Verified, ok = v.(bool)
	case "password_changed_at":
		var t time.Time
		t, ok = v.(time.Time)
		u.PasswordChangedAt = &t
	default:
		return fmt.Errorf("unknown user field %q", field)
	}
	if !ok {
		return fmt.Errorf("field %s: unexpected type %T", field, v)
	}
	return nil
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shop-auth-api/internal/domain"
)

type artifactKey struct {
	userID  string
	purpose domain.Purpose
}

// VerificationStore keeps one artifact per (user, purpose).
type VerificationStore struct {
	mu        sync.Mutex
	artifacts map[artifactKey]domain.Artifact
}

func NewVerificationStore() *VerificationStore {
	return &VerificationStore{artifacts: make(map[artifactKey]domain.Artifact)}
}

func (s *VerificationStore) Put(_ context.Context, a *domain.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[artifactKey{a.UserID, a.Purpose}] = *a
	return nil
}

func (s *VerificationStore) Get(_ context.Context, userID string, purpose domain.Purpose) (*domain.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[artifactKey{userID, purpose}]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	return &a, nil
}

// ConsumeMatching removes the artifact if hash matches and it is unexpired.
// The check and the delete happen under one lock.
func (s *VerificationStore) ConsumeMatching(_ context.Context, userID string, purpose domain.Purpose, hash string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := artifactKey{userID, purpose}
	a, ok := s.artifacts[k]
	if !ok || a.Expired(now) || (a.CodeHash != hash && a.TokenHash != hash) {
		return false, nil
	}
	delete(s.artifacts, k)
	return true, nil
}

// Attempt reserves one presentation of the artifact. It returns false when
// the artifact is missing, expired or out of attempts; an exhausted artifact
// is removed.
func (s *VerificationStore) Attempt(_ context.Context, userID string, purpose domain.Purpose, maxAttempts int, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := artifactKey{userID, purpose}
	a, ok := s.artifacts[k]
	if !ok || a.Expired(now) {
		return false, nil
	}
	if a.Attempts >= maxAttempts {
		delete(s.artifacts, k)
		return false, nil
	}
	a.Attempts++
	s.artifacts[k] = a
	return true, nil
}

func (s *VerificationStore) Delete(_ context.Context, userID string, purpose domain.Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, artifactKey{userID, purpose})
	return nil
}

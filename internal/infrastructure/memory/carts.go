package memory

import (
	"context"
	"sync"
)

// CartStore holds per-user cart item counts.
type CartStore struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewCartStore() *CartStore {
	return &CartStore{counts: make(map[string]int)}
}

func (s *CartStore) ItemsCount(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[userID], nil
}

func (s *CartStore) SetItemsCount(userID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[userID] = n
}

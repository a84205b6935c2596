// Package claim stores short-lived leases on verification requests so one
// verifier instance works a request at a time.
package claim

import (
	"context"
	"sync"
	"time"

	"carbonmint/pkg/domain"
)

// InMemoryStore is the single-process claim store.
type InMemoryStore struct {
	mu     sync.Mutex
	leases map[domain.RequestID]time.Time
	now    func() time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		leases: make(map[domain.RequestID]time.Time),
		now:    time.Now,
	}
}

// Claim takes the lease unless an unexpired one exists.
func (s *InMemoryStore) Claim(_ context.Context, id domain.RequestID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expires, ok := s.leases[id]; ok && now.Before(expires) {
		return false, nil
	}
	s.leases[id] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryStore) Release(_ context.Context, id domain.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leases, id)
	return nil
}

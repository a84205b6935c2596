package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carbonmint/internal/credit/models"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/sentinel"
	txcontext "carbonmint/pkg/platform/tx"
)

// InMemoryCreditStore keeps credits in a map keyed by id. Returned values are
// copies; callers mutate through the store.
type InMemoryCreditStore struct {
	mu      sync.RWMutex
	credits map[domain.CreditID]*models.CarbonCredit
	lastID  domain.CreditID
}

func NewInMemory() *InMemoryCreditStore {
	return &InMemoryCreditStore{credits: make(map[domain.CreditID]*models.CarbonCredit)}
}

func (s *InMemoryCreditStore) NextID(ctx context.Context) (domain.CreditID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	id := s.lastID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.lastID == id {
			s.lastID--
		}
	})
	return id, nil
}

func (s *InMemoryCreditStore) Create(ctx context.Context, credit *models.CarbonCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.credits[credit.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *credit
	s.credits[credit.ID] = &stored
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.credits, credit.ID)
	})
	return nil
}

func (s *InMemoryCreditStore) FindByID(_ context.Context, id domain.CreditID) (*models.CarbonCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credits[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *InMemoryCreditStore) ListByOwner(_ context.Context, owner domain.Address) ([]*models.CarbonCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CarbonCredit
	for _, c := range s.credits {
		if c.Owner == owner {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryCreditStore) MarkVerified(ctx context.Context, id domain.CreditID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credits[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	prev := *c
	c.MarkVerified(at)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		*s.credits[id] = prev
	})
	return nil
}

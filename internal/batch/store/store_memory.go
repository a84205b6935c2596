package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carbonmint/internal/batch/models"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/sentinel"
	txcontext "carbonmint/pkg/platform/tx"
)

// InMemoryBatchStore keeps batches in an arena indexed by id plus an index of
// active batches by project.
type InMemoryBatchStore struct {
	mu      sync.RWMutex
	batches map[domain.BatchID]*models.Batch
	active  map[string]domain.BatchID
	lastID  domain.BatchID
}

func NewInMemory() *InMemoryBatchStore {
	return &InMemoryBatchStore{
		batches: make(map[domain.BatchID]*models.Batch),
		active:  make(map[string]domain.BatchID),
	}
}

func (s *InMemoryBatchStore) NextID(ctx context.Context) (domain.BatchID, error) {
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

func (s *InMemoryBatchStore) Create(ctx context.Context, b *models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[b.ID]; exists {
		return sentinel.ErrConflict
	}
	if b.IsActive {
		if _, taken := s.active[b.ProjectID]; taken {
			return sentinel.ErrConflict
		}
		s.active[b.ProjectID] = b.ID
	}
	stored := *b
	s.batches[b.ID] = &stored
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.batches, b.ID)
		if s.active[b.ProjectID] == b.ID {
			delete(s.active, b.ProjectID)
		}
	})
	return nil
}

func (s *InMemoryBatchStore) FindByID(_ context.Context, id domain.BatchID) (*models.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (s *InMemoryBatchStore) FindActiveByProject(_ context.Context, projectID string) (*models.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[projectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.batches[id]
	return &out, nil
}

// Update replaces the stored batch. Project and id are immutable, so only
// the active index may need adjusting.
func (s *InMemoryBatchStore) Update(ctx context.Context, b *models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.batches[b.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	prev := *current
	*current = *b
	if prev.IsActive && !b.IsActive {
		delete(s.active, b.ProjectID)
	}
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		*s.batches[prev.ID] = prev
		if prev.IsActive {
			s.active[prev.ProjectID] = prev.ID
		}
	})
	return nil
}

func (s *InMemoryBatchStore) List(_ context.Context, activeOnly bool) ([]*models.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		if activeOnly && !b.IsActive {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InMemoryIssuerStore is the authorized issuer set.
type InMemoryIssuerStore struct {
	mu      sync.RWMutex
	issuers map[domain.Address]time.Time
}

func NewInMemoryIssuers() *InMemoryIssuerStore {
	return &InMemoryIssuerStore{issuers: make(map[domain.Address]time.Time)}
}

func (s *InMemoryIssuerStore) Add(ctx context.Context, addrs []domain.Address, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var added []domain.Address
	for _, a := range addrs {
		if _, ok := s.issuers[a]; ok {
			continue
		}
		s.issuers[a] = at
		added = append(added, a)
	}
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, a := range added {
			delete(s.issuers, a)
		}
	})
	return nil
}

func (s *InMemoryIssuerStore) Remove(ctx context.Context, addr domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.issuers[addr]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.issuers, addr)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.issuers[addr] = at
	})
	return nil
}

func (s *InMemoryIssuerStore) Contains(_ context.Context, addr domain.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.issuers[addr]
	return ok, nil
}

func (s *InMemoryIssuerStore) List(_ context.Context) ([]*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Issuer, 0, len(s.issuers))
	for a, at := range s.issuers {
		out = append(out, &models.Issuer{Address: a, AuthorizedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.String() < out[j].Address.String() })
	return out, nil
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carbonmint/internal/verification/models"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/sentinel"
	txcontext "carbonmint/pkg/platform/tx"
)

// InMemoryRequestStore holds verification requests and the credit -> latest
// request correlation table.
type InMemoryRequestStore struct {
	mu       sync.RWMutex
	requests map[domain.RequestID]*models.VerificationRequest
	latest   map[domain.CreditID]domain.RequestID
	sequence uint64
}

func NewInMemory() *InMemoryRequestStore {
	return &InMemoryRequestStore{
		requests: make(map[domain.RequestID]*models.VerificationRequest),
		latest:   make(map[domain.CreditID]domain.RequestID),
	}
}

func (s *InMemoryRequestStore) NextSequence(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence++
	seq := s.sequence
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.sequence == seq {
			s.sequence--
		}
	})
	return seq, nil
}

func (s *InMemoryRequestStore) Create(ctx context.Context, req *models.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.RequestID]; exists {
		return sentinel.ErrConflict
	}
	stored := *req
	s.requests[req.RequestID] = &stored
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.requests, req.RequestID)
	})
	return nil
}

func (s *InMemoryRequestStore) FindByID(_ context.Context, id domain.RequestID) (*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *req
	return &out, nil
}

func (s *InMemoryRequestStore) Update(ctx context.Context, req *models.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[req.RequestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	prev := *current
	*current = *req
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		*s.requests[prev.RequestID] = prev
	})
	return nil
}

func (s *InMemoryRequestStore) RequestFor(_ context.Context, credit domain.CreditID) (domain.RequestID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.latest[credit]
	if !ok {
		return domain.RequestID{}, sentinel.ErrNotFound
	}
	return id, nil
}

func (s *InMemoryRequestStore) SetRequestFor(ctx context.Context, credit domain.CreditID, id domain.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.latest[credit]
	s.latest[credit] = id
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if had {
			s.latest[credit] = prev
		} else {
			delete(s.latest, credit)
		}
	})
	return nil
}

func (s *InMemoryRequestStore) ListPending(_ context.Context, requestedBefore time.Time) ([]*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.VerificationRequest
	for _, req := range s.requests {
		if req.Status == models.StatusPending && req.RequestedAt.Before(requestedBefore) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

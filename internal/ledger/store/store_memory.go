package store

import (
	"context"
	"sort"
	"sync"

	"carbonmint/internal/ledger/models"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/sentinel"
	txcontext "carbonmint/pkg/platform/tx"
)

type holderKey struct {
	ledger domain.Address
	holder domain.Address
}

// InMemoryLedgerStore holds ledgers, balances, and retirement records. The
// byBatch index is the batch -> ledger direction of the dual pointer; the
// ledgers map keyed by address is the other.
type InMemoryLedgerStore struct {
	mu          sync.RWMutex
	ledgers     map[domain.Address]*models.ProjectLedger
	byBatch     map[domain.BatchID]domain.Address
	balances    map[holderKey]uint64
	retirements map[domain.Address][]*models.RetirementRecord
}

func NewInMemory() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		ledgers:     make(map[domain.Address]*models.ProjectLedger),
		byBatch:     make(map[domain.BatchID]domain.Address),
		balances:    make(map[holderKey]uint64),
		retirements: make(map[domain.Address][]*models.RetirementRecord),
	}
}

// Create writes the ledger and both mapping directions together.
func (s *InMemoryLedgerStore) Create(ctx context.Context, l *models.ProjectLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byBatch[l.BatchID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.ledgers[l.Address]; exists {
		return sentinel.ErrConflict
	}
	stored := *l
	s.ledgers[l.Address] = &stored
	s.byBatch[l.BatchID] = l.Address
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.ledgers, l.Address)
		delete(s.byBatch, l.BatchID)
	})
	return nil
}

func (s *InMemoryLedgerStore) FindByAddress(_ context.Context, addr domain.Address) (*models.ProjectLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *l
	return &out, nil
}

func (s *InMemoryLedgerStore) FindByBatch(_ context.Context, batch domain.BatchID) (*models.ProjectLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.byBatch[batch]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.ledgers[addr]
	return &out, nil
}

func (s *InMemoryLedgerStore) Update(ctx context.Context, l *models.ProjectLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.ledgers[l.Address]
	if !ok {
		return sentinel.ErrNotFound
	}
	prev := *current
	*current = *l
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		*s.ledgers[prev.Address] = prev
	})
	return nil
}

func (s *InMemoryLedgerStore) Balance(_ context.Context, ledger, holder domain.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[holderKey{ledger, holder}], nil
}

func (s *InMemoryLedgerStore) SetBalance(ctx context.Context, ledger, holder domain.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := holderKey{ledger, holder}
	prev, had := s.balances[key]
	s.balances[key] = amount
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if had {
			s.balances[key] = prev
		} else {
			delete(s.balances, key)
		}
	})
	return nil
}

func (s *InMemoryLedgerStore) AppendRetirement(ctx context.Context, r *models.RetirementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.retirements[r.Ledger]
	for _, existing := range records {
		if existing.ID == r.ID {
			return sentinel.ErrConflict
		}
	}
	stored := *r
	s.retirements[r.Ledger] = append(records, &stored)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.retirements[r.Ledger]
		s.retirements[r.Ledger] = list[:len(list)-1]
	})
	return nil
}

func (s *InMemoryLedgerStore) FindRetirement(_ context.Context, ledger domain.Address, id domain.RetirementID) (*models.RetirementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.retirements[ledger] {
		if r.ID == id {
			out := *r
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryLedgerStore) ListRetirements(_ context.Context, ledger, holder domain.Address) ([]*models.RetirementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RetirementRecord
	for _, r := range s.retirements[ledger] {
		if r.Holder == holder {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

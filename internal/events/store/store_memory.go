package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"carbonmint/internal/events"
	txcontext "carbonmint/pkg/platform/tx"
)

// InMemoryOutbox keeps entries in append order.
type InMemoryOutbox struct {
	mu      sync.RWMutex
	entries []events.Event
	index   map[uuid.UUID]int
}

func NewInMemory() *InMemoryOutbox {
	return &InMemoryOutbox{index: make(map[uuid.UUID]int)}
}

func (s *InMemoryOutbox) Append(ctx context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index[event.ID] = len(s.entries)
	s.entries = append(s.entries, event)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.index, event.ID)
		s.entries = s.entries[:len(s.entries)-1]
	})
	return nil
}

func (s *InMemoryOutbox) ListUnpublished(_ context.Context, limit int) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []events.Event
	for _, e := range s.entries {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryOutbox) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if i, ok := s.index[id]; ok {
			published := at
			s.entries[i].PublishedAt = &published
		}
	}
	return nil
}

// All returns every entry, optionally filtered by type.
func (s *InMemoryOutbox) All(types ...events.Type) []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(types) == 0 {
		return append([]events.Event(nil), s.entries...)
	}
	want := make(map[events.Type]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	var out []events.Event
	for _, e := range s.entries {
		if _, ok := want[e.Type]; ok {
			out = append(out, e)
		}
	}
	return out
}

package events

import (
	"context"
	"log/slog"
	"sync"
)

// Handler reacts to one event. Returning an error leaves the event
// unacknowledged so the relay redelivers it.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus is the in-process Publisher used when no broker is configured.
// Handlers run synchronously on the relay goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	logger   *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{handlers: make(map[Type][]Handler), logger: logger}
}

// Subscribe registers h for events of type t.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish dispatches every event to its subscribers and stops at the first
// handler error so the remainder is redelivered.
func (b *Bus) Publish(ctx context.Context, batch []Event) error {
	for _, e := range batch {
		if err := b.Dispatch(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch delivers a single event. Events nobody subscribed to are dropped.
func (b *Bus) Dispatch(ctx context.Context, e Event) error {
	b.mu.RLock()
	hs := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range hs {
		if err := h.Handle(ctx, e); err != nil {
			b.logger.WarnContext(ctx, "event handler failed",
				"event_id", e.ID,
				"event_type", e.Type,
				"aggregate_id", e.AggregateID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

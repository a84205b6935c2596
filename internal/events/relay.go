package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carbonmint/internal/events/metrics"
)

// Publisher delivers events to subscribers. Implementations must tolerate
// redelivery of an event that was published before a relay crash.
type Publisher interface {
	Publish(ctx context.Context, batch []Event) error
}

// Relay moves committed outbox entries to a Publisher.
type Relay struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type RelayOption func(*Relay)

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

func WithRelayMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRelay(store Store, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  time.Second,
		batchSize: 100,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Publish failures are logged and retried
// on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Flush publishes pending entries until none remain and returns how many
// were published.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		pending, err := r.store.ListUnpublished(ctx, r.batchSize)
		if err != nil {
			return total, err
		}
		if len(pending) == 0 {
			return total, nil
		}
		if err := r.publisher.Publish(ctx, pending); err != nil {
			if r.metrics != nil {
				r.metrics.PublishErrors.Inc()
			}
			return total, err
		}

		now := r.now()
		ids := make([]uuid.UUID, len(pending))
		for i, e := range pending {
			ids[i] = e.ID
			if r.metrics != nil {
				r.metrics.ObservePublished(string(e.Type), e.CreatedAt, now)
			}
		}
		if err := r.store.MarkPublished(ctx, ids, now); err != nil {
			return total, err
		}
		total += len(pending)
		if len(pending) < r.batchSize {
			return total, nil
		}
	}
}

package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"carbonmint/internal/verification/models"
	"carbonmint/internal/verifier/metrics"
	"carbonmint/pkg/requestcontext"
)

type PendingLister interface {
	ListPending(ctx context.Context, requestedBefore time.Time) ([]*models.VerificationRequest, error)
}

// Sweeper periodically re-dispatches requests that stayed pending past the
// grace period, covering lost events and deferred registry lookups.
type Sweeper struct {
	lister   PendingLister
	worker   *Worker
	schedule string
	grace    time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

type SweeperOption func(*Sweeper)

func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = logger }
}

func WithSweeperMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

func NewSweeper(lister PendingLister, worker *Worker, schedule string, grace time.Duration, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		lister:   lister,
		worker:   worker,
		schedule: schedule,
		grace:    grace,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the sweep. Overlapping runs are skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("verifier sweeper already running")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "verifier sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.logger.InfoContext(ctx, "starting verifier sweeper", "schedule", s.schedule, "grace_period", s.grace)
	c.Start()
	s.cron = c
	s.running = true
	return nil
}

// Stop waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

// Sweep processes every request pending since before now minus the grace
// period and returns how many were dispatched.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.grace)
	pending, err := s.lister.ListPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, req := range pending {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.worker.Process(ctx, req.RequestID); err != nil {
			s.logger.WarnContext(ctx, "redelivery failed",
				"verification_request_id", req.RequestID.String(),
				"error", err,
			)
			continue
		}
		dispatched++
	}

	if len(pending) > 0 {
		s.logger.InfoContext(ctx, "verifier sweep completed", "pending", len(pending), "dispatched", dispatched)
	}
	if s.metrics != nil {
		s.metrics.AddSwept(dispatched)
	}
	return dispatched, ctx.Err()
}

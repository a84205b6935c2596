package verifier

import (
	"context"
	"io"
	"log/slog"
	"time"

	"carbonmint/internal/verification/models"
	"carbonmint/pkg/requestcontext"
)

func (s *WorkerSuite) newSweeper(schedule string) *Sweeper {
	return NewSweeper(s.verifications, s.worker, schedule, 2*time.Minute,
		WithSweeperLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *WorkerSuite) TestSweepRedeliversStaleRequests() {
	stale := s.requestFor("GS-15234")

	s.ctx = requestcontext.WithTime(context.Background(), s.now.Add(5*time.Minute))
	fresh := s.requestFor("GS-EMPTY")

	sweepCtx := requestcontext.WithTime(context.Background(), s.now.Add(6*time.Minute))
	n, err := s.newSweeper("@every 1m").Sweep(sweepCtx)
	s.Require().NoError(err)
	s.Equal(1, n)

	s.Equal(models.StatusVerified, s.reload(stale.RequestID).Status)
	s.Equal(models.StatusPending, s.reload(fresh.RequestID).Status)
	s.Equal([]string{"GS-15234"}, s.registry.calls)
}

func (s *WorkerSuite) TestSweepSkipsFulfilledRequests() {
	req := s.requestFor("GS-15234")
	_, err := s.worker.Process(s.ctx, req.RequestID)
	s.Require().NoError(err)

	n, err := s.newSweeper("@every 1m").Sweep(requestcontext.WithTime(context.Background(), s.now.Add(time.Hour)))
	s.Require().NoError(err)
	s.Zero(n)
	s.Equal(1, s.registry.callCount())
}

func (s *WorkerSuite) TestSweeperLifecycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Error(s.newSweeper("not a schedule").Start(ctx))

	sw := s.newSweeper("@every 1h")
	s.Require().NoError(sw.Start(ctx))
	s.Error(sw.Start(ctx), "second start is rejected")
	sw.Stop()
	sw.Stop()
}

package verifier

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	creditmodels "carbonmint/internal/credit/models"
	creditservice "carbonmint/internal/credit/service"
	creditstore "carbonmint/internal/credit/store"
	"carbonmint/internal/events"
	eventstore "carbonmint/internal/events/store"
	"carbonmint/internal/txn"
	"carbonmint/internal/verification/models"
	verificationservice "carbonmint/internal/verification/service"
	verificationstore "carbonmint/internal/verification/store"
	"carbonmint/internal/verifier/claim"
	"carbonmint/internal/verifier/metrics"
	"carbonmint/internal/verifier/registry"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/requestcontext"
)

type fakeRegistry struct {
	mu       sync.Mutex
	projects map[string]*registry.Project
	err      error
	calls    []string
}

func (f *fakeRegistry) Lookup(_ context.Context, projectID string) (*registry.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, projectID)
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.projects[projectID]
	if !ok {
		return nil, registry.NewError(registry.ErrorNotFound, projectID, "project not found", nil)
	}
	return p, nil
}

func (f *fakeRegistry) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// staleGateway reports requests as pending even after fulfillment, like a
// worker that lost a race with another delivery.
type staleGateway struct {
	Gateway
}

func (g staleGateway) Get(ctx context.Context, id domain.RequestID) (*models.VerificationRequest, error) {
	req, err := g.Gateway.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	copied := *req
	copied.Fulfilled = false
	copied.Status = models.StatusPending
	return &copied, nil
}

type WorkerSuite struct {
	suite.Suite
	ctx           context.Context
	now           time.Time
	owner         domain.Address
	verifierAddr  domain.Address
	outbox        *eventstore.InMemoryOutbox
	credits       *creditservice.Service
	verifications *verificationservice.Service
	registry      *fakeRegistry
	claims        *claim.InMemoryStore
	worker        *Worker
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.owner = domain.MustAddress("0x00000000000000000000000000000000000000a1")
	s.verifierAddr = domain.MustAddress("0x00000000000000000000000000000000000a0002")

	tx := txn.NewMemory()
	s.outbox = eventstore.NewInMemory()
	recorder := events.NewRecorder(s.outbox)
	s.credits = creditservice.New(creditstore.NewInMemory(), tx, creditservice.WithEventRecorder(recorder))
	s.verifications = verificationservice.New(verificationstore.NewInMemory(), s.credits, tx,
		verificationservice.Identities{
			Gateway:  domain.MustAddress("0x00000000000000000000000000000000000a0003"),
			Verifier: s.verifierAddr,
		},
		verificationservice.WithEventRecorder(recorder),
	)
	s.registry = &fakeRegistry{projects: map[string]*registry.Project{
		"GS-15234": {GSID: "GS-15234", AvailableForSale: 5000, Timestamp: "2025-01-15"},
		"GS-EMPTY": {GSID: "GS-EMPTY", AvailableForSale: 0, Timestamp: "2025-01-16"},
	}}
	s.claims = claim.NewInMemory()
	s.worker = s.newWorker(s.verifications)
}

func (s *WorkerSuite) newWorker(gateway Gateway) *Worker {
	return NewWorker(gateway, s.credits, s.registry, s.claims, s.verifierAddr,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.NewWithRegistry(prometheus.NewRegistry())),
	)
}

func (s *WorkerSuite) requestFor(project string) *models.VerificationRequest {
	credit, err := s.credits.Register(s.ctx, s.owner, creditmodels.RegisterRequest{Amount: 10000, ProjectID: project})
	s.Require().NoError(err)
	req, err := s.verifications.RequestVerification(s.ctx, s.owner, credit.ID)
	s.Require().NoError(err)
	return req
}

func (s *WorkerSuite) reload(id domain.RequestID) *models.VerificationRequest {
	req, err := s.verifications.Get(s.ctx, id)
	s.Require().NoError(err)
	return req
}

func (s *WorkerSuite) TestHandleVerifiesCredit() {
	req := s.requestFor("GS-15234")
	requested := s.outbox.All(events.VerificationRequested)
	s.Require().Len(requested, 1)

	s.Require().NoError(s.worker.Handle(s.ctx, requested[0]))

	got := s.reload(req.RequestID)
	s.Equal(models.StatusVerified, got.Status)
	s.Equal("GS-15234", got.ExternalProjectID)
	s.Equal(uint64(5000), got.AvailableForSale)
	s.Equal("2025-01-15", got.ExternalTimestamp)

	credit, err := s.credits.Get(s.ctx, req.CreditID)
	s.Require().NoError(err)
	s.True(credit.IsVerified)
}

func (s *WorkerSuite) TestHandleIgnoresOtherEvents() {
	s.requestFor("GS-15234")
	for _, e := range s.outbox.All(events.CreditRegistered) {
		s.Require().NoError(s.worker.Handle(s.ctx, e))
	}
	s.Zero(s.registry.callCount())
}

func (s *WorkerSuite) TestHandleDropsUndecodablePayload() {
	err := s.worker.Handle(s.ctx, events.Event{Type: events.VerificationRequested, Payload: []byte(`{`)})
	s.NoError(err)
	s.Zero(s.registry.callCount())
}

func (s *WorkerSuite) TestUnknownProjectFails() {
	req := s.requestFor("GS-MISSING")

	outcome, err := s.worker.Process(s.ctx, req.RequestID)
	s.Require().NoError(err)
	s.Equal(OutcomeFailed, outcome)

	got := s.reload(req.RequestID)
	s.Equal(models.StatusFailed, got.Status)
	s.Contains(got.FailureReason, "not found")

	credit, err := s.credits.Get(s.ctx, req.CreditID)
	s.Require().NoError(err)
	s.False(credit.IsVerified)
}

func (s *WorkerSuite) TestNothingAvailableFailsWithFigures() {
	req := s.requestFor("GS-EMPTY")

	outcome, err := s.worker.Process(s.ctx, req.RequestID)
	s.Require().NoError(err)
	s.Equal(OutcomeFailed, outcome)

	got := s.reload(req.RequestID)
	s.Equal(models.StatusFailed, got.Status)
	s.Equal("GS-EMPTY", got.ExternalProjectID)
	s.Equal("2025-01-16", got.ExternalTimestamp)
	s.Zero(got.AvailableForSale)
}

func (s *WorkerSuite) TestRetryableFailureLeavesRequestPending() {
	req := s.requestFor("GS-15234")
	s.registry.err = registry.NewError(registry.ErrorOutage, "GS-15234", "registry error (503)", nil)

	outcome, err := s.worker.Process(s.ctx, req.RequestID)
	s.Require().NoError(err)
	s.Equal(OutcomeDeferred, outcome)
	s.Equal(models.StatusPending, s.reload(req.RequestID).Status)

	s.registry.err = nil
	outcome, err = s.worker.Process(s.ctx, req.RequestID)
	s.Require().NoError(err)
	s.Equal(OutcomeVerified, outcome, "deferred requests release their claim")
	s.Equal(2, s.registry.callCount())
}

func (s *WorkerSuite) TestClaimedElsewhereIsSkipped() {
	req := s.requestFor("GS-15234")
	ok, err := s.claims.Claim(s.ctx, req.RequestID, time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	outcome, err := s.worker.Process(s.ctx, req.RequestID)
	s.Require().NoError(err)
	s.Equal(OutcomeClaimed, outcome)
	s.Zero(s.registry.callCount())
	s.Equal(models.StatusPending, s.reload(req.RequestID).Status)
}

func (s *WorkerSuite) TestRedeliveryOfFulfilledRequest() {
	req := s.requestFor("GS-15234")
	_, err := s.worker.Process(s.ctx, req.RequestID)
	s.Require().NoError(err)
	s.Require().NoError(s.claims.Release(s.ctx, req.RequestID))

	outcome, err := s.worker.Process(s.ctx, req.RequestID)
	s.Require().NoError(err)
	s.Equal(OutcomeDuplicate, outcome)
	s.Equal(1, s.registry.callCount())
}

func (s *WorkerSuite) TestAlreadyFulfilledCountsAsSuccess() {
	req := s.requestFor("GS-15234")
	_, err := s.verifications.Fulfill(s.ctx, s.verifierAddr, req.RequestID, models.Fulfillment{Error: "registry offline"})
	s.Require().NoError(err)

	outcome, err := s.newWorker(staleGateway{Gateway: s.verifications}).Process(s.ctx, req.RequestID)
	s.Require().NoError(err)
	s.Equal(OutcomeDuplicate, outcome)
	s.Equal(models.StatusFailed, s.reload(req.RequestID).Status)
}

func (s *WorkerSuite) TestWrongIdentityIsRejected() {
	req := s.requestFor("GS-15234")
	impostor := NewWorker(s.verifications, s.credits, s.registry, s.claims, s.owner,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	outcome, err := impostor.Process(s.ctx, req.RequestID)
	s.Require().NoError(err)
	s.Equal(OutcomeRejected, outcome)
	s.Equal(models.StatusPending, s.reload(req.RequestID).Status)
}

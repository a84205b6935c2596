package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	creditmodels "carbonmint/internal/credit/models"
	"carbonmint/internal/events"
	"carbonmint/internal/txn"
	"carbonmint/internal/verification/metrics"
	"carbonmint/internal/verification/models"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/platform/sentinel"
	"carbonmint/pkg/platform/tracing"
	"carbonmint/pkg/requestcontext"
)

type Store interface {
	NextSequence(ctx context.Context) (uint64, error)
	Create(ctx context.Context, req *models.VerificationRequest) error
	FindByID(ctx context.Context, id domain.RequestID) (*models.VerificationRequest, error)
	Update(ctx context.Context, req *models.VerificationRequest) error
	RequestFor(ctx context.Context, credit domain.CreditID) (domain.RequestID, error)
	SetRequestFor(ctx context.Context, credit domain.CreditID, id domain.RequestID) error
	ListPending(ctx context.Context, requestedBefore time.Time) ([]*models.VerificationRequest, error)
}

// CreditRegistry is the slice of the credit service the gateway depends on.
type CreditRegistry interface {
	Get(ctx context.Context, id domain.CreditID) (*creditmodels.CarbonCredit, error)
	MarkVerified(ctx context.Context, id domain.CreditID, at time.Time) error
}

type EventRecorder interface {
	Record(ctx context.Context, eventType events.Type, aggregateID string, payload any) error
}

// Identities names the gateway's own address, used to derive request ids,
// and the single verifier allowed to deliver callbacks.
type Identities struct {
	Gateway  domain.Address
	Verifier domain.Address
}

// Service correlates outbound verification requests with verifier callbacks.
type Service struct {
	store      Store
	credits    CreditRegistry
	tx         txn.Runner
	identities Identities
	events     EventRecorder
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithEventRecorder(r EventRecorder) Option {
	return func(s *Service) {
		s.events = r
	}
}

func New(store Store, credits CreditRegistry, tx txn.Runner, identities Identities, opts ...Option) *Service {
	s := &Service{
		store:      store,
		credits:    credits,
		tx:         tx,
		identities: identities,
		tracer:     tracing.Tracer("verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestVerification opens a new pending request for a credit. A credit
// whose latest request is terminal may be re-verified; the new request
// replaces the correlation entry.
func (s *Service) RequestVerification(ctx context.Context, caller domain.Address, creditID domain.CreditID) (_ *models.VerificationRequest, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "verification.Request",
		attribute.String("credit.id", creditID.String()),
	)
	defer func() {
		tracing.End(span, err)
		s.observeRejected("request", err)
	}()

	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	var req *models.VerificationRequest
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		credit, err := s.credits.Get(ctx, creditID)
		if err != nil {
			return err
		}

		current, err := s.latestFor(ctx, creditID)
		if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		if current != nil && current.Status == models.StatusPending {
			return dErrors.New(dErrors.CodeDuplicateRequest, "a verification request is already pending for this credit")
		}

		seq, err := s.store.NextSequence(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate request sequence")
		}
		id := domain.DeriveRequestID(s.identities.Gateway, creditID, seq)
		req, err = models.NewPending(id, creditID, caller, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, req); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "derived request id collided")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification request")
		}
		if err := s.store.SetRequestFor(ctx, creditID, id); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to map credit to request")
		}
		return s.record(ctx, events.VerificationRequested, id.String(), events.VerificationRequestedPayload{
			RequestID: id,
			CreditID:  creditID,
			ProjectID: credit.ProjectID,
			Requester: caller,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(events.VerificationRequested),
		"verification_request_id", req.RequestID,
		"credit_id", req.CreditID,
		"requester", caller,
	)
	if s.metrics != nil {
		s.metrics.IncrementRequested()
	}
	return req, nil
}

// Fulfill applies the verifier callback. The caller identity is checked
// before the request is even looked up.
func (s *Service) Fulfill(ctx context.Context, caller domain.Address, requestID domain.RequestID, f models.Fulfillment) (_ *models.VerificationRequest, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "verification.Fulfill",
		attribute.String("verification.request_id", requestID.String()),
		attribute.Bool("verification.success", f.Success()),
	)
	defer func() {
		tracing.End(span, err)
		s.observeRejected("fulfill", err)
	}()

	if caller.IsZero() || caller != s.identities.Verifier {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the configured verifier may fulfill requests")
	}

	var req *models.VerificationRequest
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.store.FindByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeUnknownRequest, "unknown verification request")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification request")
		}

		now := requestcontext.Now(ctx)
		if err := req.Apply(f, now); err != nil {
			return err
		}
		if err := s.store.Update(ctx, req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store fulfillment")
		}
		if req.Status == models.StatusVerified {
			if err := s.credits.MarkVerified(ctx, req.CreditID, now); err != nil {
				return err
			}
		}
		return s.record(ctx, events.VerificationFulfilled, req.RequestID.String(), events.VerificationFulfilledPayload{
			RequestID:         req.RequestID,
			CreditID:          req.CreditID,
			Status:            string(req.Status),
			ExternalProjectID: req.ExternalProjectID,
			AvailableForSale:  req.AvailableForSale,
			ExternalTimestamp: req.ExternalTimestamp,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(events.VerificationFulfilled),
		"verification_request_id", req.RequestID,
		"credit_id", req.CreditID,
		"status", req.Status,
		"available_for_sale", req.AvailableForSale,
	)
	if s.metrics != nil {
		s.metrics.ObserveFulfilled(string(req.Status), req.RequestedAt, *req.FulfilledAt)
	}
	return req, nil
}

// RequestFor returns the latest request id for a credit.
func (s *Service) RequestFor(ctx context.Context, creditID domain.CreditID) (domain.RequestID, error) {
	var id domain.RequestID
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.requestFor(ctx, creditID)
		return err
	})
	return id, err
}

// LatestFor returns the latest request for a credit or CodeNotFound.
func (s *Service) LatestFor(ctx context.Context, creditID domain.CreditID) (*models.VerificationRequest, error) {
	var req *models.VerificationRequest
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.latestFor(ctx, creditID)
		return err
	})
	return req, err
}

func (s *Service) Get(ctx context.Context, id domain.RequestID) (*models.VerificationRequest, error) {
	var req *models.VerificationRequest
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.find(ctx, id)
		return err
	})
	return req, err
}

// ListPending returns requests still awaiting a callback that were opened
// before the cutoff, oldest first.
func (s *Service) ListPending(ctx context.Context, requestedBefore time.Time) ([]*models.VerificationRequest, error) {
	var pending []*models.VerificationRequest
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		pending, err = s.store.ListPending(ctx, requestedBefore)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending requests")
		}
		return nil
	})
	return pending, err
}

func (s *Service) requestFor(ctx context.Context, creditID domain.CreditID) (domain.RequestID, error) {
	id, err := s.store.RequestFor(ctx, creditID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.RequestID{}, dErrors.New(dErrors.CodeNotFound, "no verification request for credit")
		}
		return domain.RequestID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit request mapping")
	}
	return id, nil
}

func (s *Service) latestFor(ctx context.Context, creditID domain.CreditID) (*models.VerificationRequest, error) {
	id, err := s.requestFor(ctx, creditID)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

func (s *Service) find(ctx context.Context, id domain.RequestID) (*models.VerificationRequest, error) {
	req, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification request")
	}
	return req, nil
}

func (s *Service) record(ctx context.Context, t events.Type, aggregateID string, payload any) error {
	if s.events == nil {
		return nil
	}
	if err := s.events.Record(ctx, t, aggregateID, payload); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func (s *Service) observeRejected(operation string, err error) {
	if s.metrics == nil || err == nil {
		return
	}
	s.metrics.IncrementRejected(operation, string(dErrors.CodeOf(err)))
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"carbonmint/internal/credit/metrics"
	"carbonmint/internal/credit/models"
	"carbonmint/internal/events"
	"carbonmint/internal/txn"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/platform/sentinel"
	"carbonmint/pkg/platform/tracing"
	"carbonmint/pkg/requestcontext"
)

type Store interface {
	NextID(ctx context.Context) (domain.CreditID, error)
	Create(ctx context.Context, credit *models.CarbonCredit) error
	FindByID(ctx context.Context, id domain.CreditID) (*models.CarbonCredit, error)
	ListByOwner(ctx context.Context, owner domain.Address) ([]*models.CarbonCredit, error)
	MarkVerified(ctx context.Context, id domain.CreditID, at time.Time) error
}

type EventRecorder interface {
	Record(ctx context.Context, eventType events.Type, aggregateID string, payload any) error
}

// Service owns the credit lifecycle from registration to verification.
type Service struct {
	store   Store
	tx      txn.Runner
	events  EventRecorder
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
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

func New(store Store, tx txn.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     tx,
		tracer: tracing.Tracer("credit"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register allocates a new credit owned by caller.
func (s *Service) Register(ctx context.Context, caller domain.Address, req models.RegisterRequest) (_ *models.CarbonCredit, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, s.tracer, "credit.Register",
		attribute.String("credit.project_id", req.ProjectID),
		attribute.Int64("credit.amount", int64(req.Amount)),
	)
	defer func() {
		tracing.End(span, err)
		s.observeRegister(start, err)
	}()

	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var credit *models.CarbonCredit
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		id, err := s.store.NextID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate credit id")
		}
		credit, err = models.NewCarbonCredit(id, caller, req, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, credit); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credit")
		}
		return s.record(ctx, events.CreditRegistered, credit.ID.String(), events.CreditRegisteredPayload{
			CreditID:  credit.ID,
			Owner:     credit.Owner,
			Amount:    credit.Amount,
			ProjectID: credit.ProjectID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(events.CreditRegistered),
		"credit_id", credit.ID,
		"owner", credit.Owner,
		"project_id", credit.ProjectID,
		"amount", credit.Amount,
	)
	if s.metrics != nil {
		s.metrics.IncrementRegistered(credit.Amount)
	}
	return credit, nil
}

// Get returns a credit or CodeNotFound.
func (s *Service) Get(ctx context.Context, id domain.CreditID) (*models.CarbonCredit, error) {
	var credit *models.CarbonCredit
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		credit, err = s.find(ctx, id)
		return err
	})
	return credit, err
}

// ListByOwner returns the owner's credits in id order.
func (s *Service) ListByOwner(ctx context.Context, owner domain.Address) ([]*models.CarbonCredit, error) {
	var credits []*models.CarbonCredit
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		credits, err = s.store.ListByOwner(ctx, owner)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credits")
		}
		return nil
	})
	return credits, err
}

// MarkVerified flips the verified flag. It is called by the verification
// gateway from inside its fulfillment transaction and is not exposed over HTTP.
func (s *Service) MarkVerified(ctx context.Context, id domain.CreditID, at time.Time) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.find(ctx, id); err != nil {
			return err
		}
		if err := s.store.MarkVerified(ctx, id, at); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark credit verified")
		}
		return nil
	})
}

func (s *Service) find(ctx context.Context, id domain.CreditID) (*models.CarbonCredit, error) {
	credit, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credit not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit")
	}
	return credit, nil
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

func (s *Service) observeRegister(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveRegister(start)
	if err != nil {
		s.metrics.IncrementRejected(string(dErrors.CodeOf(err)))
	}
}

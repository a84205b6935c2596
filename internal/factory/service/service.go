// Package service implements the token mint factory: it creates the ledger
// paired with each batch and resolves the mapping in both directions.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"carbonmint/internal/events"
	ledgermodels "carbonmint/internal/ledger/models"
	"carbonmint/internal/txn"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/platform/sentinel"
	"carbonmint/pkg/platform/tracing"
	"carbonmint/pkg/requestcontext"
)

// Store is the ledger registry the factory writes to.
type Store interface {
	Create(ctx context.Context, l *ledgermodels.ProjectLedger) error
	FindByAddress(ctx context.Context, addr domain.Address) (*ledgermodels.ProjectLedger, error)
	FindByBatch(ctx context.Context, batch domain.BatchID) (*ledgermodels.ProjectLedger, error)
}

type EventRecorder interface {
	Record(ctx context.Context, eventType events.Type, aggregateID string, payload any) error
}

type Service struct {
	store   Store
	tx      txn.Runner
	address domain.Address
	events  EventRecorder
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEventRecorder(r EventRecorder) Option {
	return func(s *Service) {
		s.events = r
	}
}

// New builds a factory whose ledger addresses are derived from address.
func New(store Store, tx txn.Runner, address domain.Address, opts ...Option) *Service {
	s := &Service{
		store:   store,
		tx:      tx,
		address: address,
		tracer:  tracing.Tracer("factory"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLedger creates the ledger for a batch at a deterministic address.
// It joins the caller's transaction.
func (s *Service) CreateLedger(ctx context.Context, batchID domain.BatchID) (_ domain.Address, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "factory.CreateLedger", attribute.String("batch.id", batchID.String()))
	defer func() { tracing.End(span, err) }()

	var ledger *ledgermodels.ProjectLedger
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		ledger, err = ledgermodels.NewProjectLedger(domain.DeriveLedgerAddress(s.address, batchID), batchID, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, ledger); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				return dErrors.New(dErrors.CodeAlreadyExists, "batch already has a ledger")
			case errors.Is(err, sentinel.ErrConflict):
				return dErrors.New(dErrors.CodeInvariantViolation, "derived ledger address is already taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ledger")
		}
		if s.events == nil {
			return nil
		}
		if err := s.events.Record(ctx, events.LedgerCreated, ledger.Address.String(), events.LedgerCreatedPayload{
			BatchID: batchID,
			Ledger:  ledger.Address,
			Name:    ledger.Name,
			Symbol:  ledger.Symbol,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
		}
		return nil
	})
	if err != nil {
		return domain.Address{}, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "ledger created",
			"batch_id", batchID,
			"ledger", ledger.Address,
			"symbol", ledger.Symbol,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return ledger.Address, nil
}

// LedgerOf returns the ledger address of a batch or CodeNotFound.
func (s *Service) LedgerOf(ctx context.Context, batchID domain.BatchID) (domain.Address, error) {
	var addr domain.Address
	err := s.tx.View(ctx, func(ctx context.Context) error {
		l, err := s.store.FindByBatch(ctx, batchID)
		if err != nil {
			return translate(err, "batch has no ledger")
		}
		addr = l.Address
		return nil
	})
	return addr, err
}

// BatchOf returns the batch behind a ledger address or CodeNotFound.
func (s *Service) BatchOf(ctx context.Context, ledger domain.Address) (domain.BatchID, error) {
	var id domain.BatchID
	err := s.tx.View(ctx, func(ctx context.Context) error {
		l, err := s.store.FindByAddress(ctx, ledger)
		if err != nil {
			return translate(err, "ledger not found")
		}
		id = l.BatchID
		return nil
	})
	return id, err
}

func translate(err error, notFound string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ledger registry")
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	batchmodels "carbonmint/internal/batch/models"
	"carbonmint/internal/events"
	"carbonmint/internal/ledger/certificate"
	"carbonmint/internal/ledger/metrics"
	"carbonmint/internal/ledger/models"
	"carbonmint/internal/txn"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/platform/sentinel"
	"carbonmint/pkg/platform/tracing"
	"carbonmint/pkg/requestcontext"
)

type Store interface {
	FindByAddress(ctx context.Context, addr domain.Address) (*models.ProjectLedger, error)
	Update(ctx context.Context, l *models.ProjectLedger) error
	Balance(ctx context.Context, ledger, holder domain.Address) (uint64, error)
	SetBalance(ctx context.Context, ledger, holder domain.Address, amount uint64) error
	AppendRetirement(ctx context.Context, r *models.RetirementRecord) error
	FindRetirement(ctx context.Context, ledger domain.Address, id domain.RetirementID) (*models.RetirementRecord, error)
	ListRetirements(ctx context.Context, ledger, holder domain.Address) ([]*models.RetirementRecord, error)
}

// BatchRegistry is the batch-side accounting the ledger writes through.
type BatchRegistry interface {
	GetMetadata(ctx context.Context, id domain.BatchID) (*batchmodels.Batch, error)
	IsAuthorizedFor(ctx context.Context, id domain.BatchID, addr domain.Address) (bool, error)
	RecordIssuance(ctx context.Context, id domain.BatchID, amount uint64) error
	RecordRetirement(ctx context.Context, id domain.BatchID, amount uint64) error
}

type EventRecorder interface {
	Record(ctx context.Context, eventType events.Type, aggregateID string, payload any) error
}

// Service operates project ledgers. Every balance change is mirrored into
// the batch counters within the same transaction.
type Service struct {
	store       Store
	batches     BatchRegistry
	tx          txn.Runner
	events      EventRecorder
	logger      *slog.Logger
	metrics     *metrics.Metrics
	certificate certificate.Options
	tracer      trace.Tracer
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

func WithCertificateOptions(opts certificate.Options) Option {
	return func(s *Service) {
		s.certificate = opts
	}
}

func New(store Store, batches BatchRegistry, tx txn.Runner, opts ...Option) *Service {
	s := &Service{
		store:       store,
		batches:     batches,
		tx:          tx,
		certificate: certificate.DefaultOptions(),
		tracer:      tracing.Tracer("ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint credits units to a holder, bounded by the batch's remaining headroom.
func (s *Service) Mint(ctx context.Context, req models.MintRequest) (_ *models.ProjectLedger, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ledger.Mint",
		attribute.String("ledger.address", req.Ledger.String()),
		attribute.Int64("ledger.amount", int64(req.Amount)),
	)
	defer func() {
		tracing.End(span, err)
		s.observeRejected("mint", err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var ledger *models.ProjectLedger
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		ledger, err = s.find(ctx, req.Ledger)
		if err != nil {
			return err
		}

		ok, err := s.batches.IsAuthorizedFor(ctx, ledger.BatchID, req.Issuer)
		if err != nil {
			return err
		}
		if !ok {
			return dErrors.New(dErrors.CodeUnauthorized, "caller may not mint units of this batch")
		}

		batch, err := s.batches.GetMetadata(ctx, ledger.BatchID)
		if err != nil {
			return err
		}
		if req.Amount > batch.Headroom() {
			return dErrors.Newf(dErrors.CodeInsufficientHeadroom,
				"minting %d exceeds remaining batch headroom %d", req.Amount, batch.Headroom())
		}

		balance, err := s.store.Balance(ctx, ledger.Address, req.To)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
		}
		if err := s.store.SetBalance(ctx, ledger.Address, req.To, balance+req.Amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit balance")
		}
		ledger.TotalSupply += req.Amount
		if err := s.store.Update(ctx, ledger); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update supply")
		}
		if err := s.batches.RecordIssuance(ctx, ledger.BatchID, req.Amount); err != nil {
			return err
		}
		return s.record(ctx, events.LedgerMinted, ledger.Address.String(), events.LedgerMintedPayload{
			Ledger:  ledger.Address,
			BatchID: ledger.BatchID,
			To:      req.To,
			Amount:  req.Amount,
			Issuer:  req.Issuer,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(events.LedgerMinted),
		"ledger", ledger.Address,
		"batch_id", ledger.BatchID,
		"to", req.To,
		"amount", req.Amount,
		"issuer", req.Issuer,
	)
	if s.metrics != nil {
		s.metrics.AddMinted(req.Amount)
	}
	return ledger, nil
}

// Retire burns the holder's units and appends an immutable retirement record.
func (s *Service) Retire(ctx context.Context, req models.RetireRequest) (_ *models.RetirementRecord, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "ledger.Retire",
		attribute.String("ledger.address", req.Ledger.String()),
		attribute.Int64("ledger.amount", int64(req.Amount)),
	)
	defer func() {
		tracing.End(span, err)
		s.observeRejected("retire", err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var record *models.RetirementRecord
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ledger, err := s.find(ctx, req.Ledger)
		if err != nil {
			return err
		}

		balance, err := s.store.Balance(ctx, ledger.Address, req.Holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
		}
		if balance < req.Amount {
			return dErrors.Newf(dErrors.CodeInsufficientBalance, "balance %d is less than %d", balance, req.Amount)
		}

		record = &models.RetirementRecord{
			Ledger:    ledger.Address,
			ID:        ledger.NextRetirementID,
			Holder:    req.Holder,
			Amount:    req.Amount,
			Reason:    req.Reason,
			RetiredAt: requestcontext.Now(ctx),
		}
		if err := s.store.SetBalance(ctx, ledger.Address, req.Holder, balance-req.Amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit balance")
		}
		ledger.TotalSupply -= req.Amount
		ledger.TotalRetired += req.Amount
		ledger.NextRetirementID++
		if err := s.store.Update(ctx, ledger); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update supply")
		}
		if err := s.store.AppendRetirement(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store retirement record")
		}
		if err := s.batches.RecordRetirement(ctx, ledger.BatchID, req.Amount); err != nil {
			return err
		}
		return s.record(ctx, events.LedgerRetired, ledger.Address.String(), events.LedgerRetiredPayload{
			Ledger:       ledger.Address,
			BatchID:      ledger.BatchID,
			RetirementID: record.ID,
			Holder:       record.Holder,
			Amount:       record.Amount,
			Reason:       record.Reason,
			RetiredAt:    record.RetiredAt,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(events.LedgerRetired),
		"ledger", record.Ledger,
		"retirement_id", record.ID,
		"holder", record.Holder,
		"amount", record.Amount,
	)
	if s.metrics != nil {
		s.metrics.AddRetired(record.Amount)
	}
	return record, nil
}

// Get returns the ledger summary or CodeNotFound.
func (s *Service) Get(ctx context.Context, addr domain.Address) (*models.ProjectLedger, error) {
	var ledger *models.ProjectLedger
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		ledger, err = s.find(ctx, addr)
		return err
	})
	return ledger, err
}

// BalanceOf returns a holder's balance; unknown holders have zero.
func (s *Service) BalanceOf(ctx context.Context, addr, holder domain.Address) (uint64, error) {
	var balance uint64
	err := s.tx.View(ctx, func(ctx context.Context) error {
		if _, err := s.find(ctx, addr); err != nil {
			return err
		}
		var err error
		balance, err = s.store.Balance(ctx, addr, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
		}
		return nil
	})
	return balance, err
}

func (s *Service) GetRetirementRecord(ctx context.Context, addr domain.Address, id domain.RetirementID) (*models.RetirementRecord, error) {
	var record *models.RetirementRecord
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.findRetirement(ctx, addr, id)
		return err
	})
	return record, err
}

// GetUserRetirements returns the holder's retirement ids in ascending order.
func (s *Service) GetUserRetirements(ctx context.Context, addr, holder domain.Address) ([]domain.RetirementID, error) {
	var ids []domain.RetirementID
	err := s.tx.View(ctx, func(ctx context.Context) error {
		if _, err := s.find(ctx, addr); err != nil {
			return err
		}
		records, err := s.store.ListRetirements(ctx, addr, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list retirements")
		}
		ids = make([]domain.RetirementID, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		return nil
	})
	return ids, err
}

// Certificate renders a retirement record as a PDF.
func (s *Service) Certificate(ctx context.Context, addr domain.Address, id domain.RetirementID) (string, []byte, error) {
	var data certificate.Data
	err := s.tx.View(ctx, func(ctx context.Context) error {
		ledger, err := s.find(ctx, addr)
		if err != nil {
			return err
		}
		record, err := s.findRetirement(ctx, addr, id)
		if err != nil {
			return err
		}
		batch, err := s.batches.GetMetadata(ctx, ledger.BatchID)
		if err != nil {
			return err
		}
		data = certificate.Data{
			Number:            models.CertificateNumber(ledger.BatchID, record.ID),
			LedgerName:        ledger.Name,
			LedgerSymbol:      ledger.Symbol,
			LedgerAddress:     ledger.Address.String(),
			ProjectID:         batch.ProjectID,
			ExternalProjectID: batch.Snapshot.ExternalProjectID,
			Holder:            record.Holder.String(),
			Amount:            record.Amount,
			Reason:            record.Reason,
			RetiredAt:         record.RetiredAt,
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	pdf, err := certificate.Render(data, s.certificate)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render certificate")
	}
	return data.Number, pdf, nil
}

func (s *Service) find(ctx context.Context, addr domain.Address) (*models.ProjectLedger, error) {
	ledger, err := s.store.FindByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "ledger not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger")
	}
	return ledger, nil
}

func (s *Service) findRetirement(ctx context.Context, addr domain.Address, id domain.RetirementID) (*models.RetirementRecord, error) {
	record, err := s.store.FindRetirement(ctx, addr, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "retirement record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load retirement record")
	}
	return record, nil
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

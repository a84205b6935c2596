package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"carbonmint/internal/batch/metrics"
	"carbonmint/internal/batch/models"
	creditmodels "carbonmint/internal/credit/models"
	"carbonmint/internal/events"
	"carbonmint/internal/txn"
	verificationmodels "carbonmint/internal/verification/models"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/platform/sentinel"
	"carbonmint/pkg/platform/tracing"
	"carbonmint/pkg/requestcontext"
)

type Store interface {
	NextID(ctx context.Context) (domain.BatchID, error)
	Create(ctx context.Context, b *models.Batch) error
	FindByID(ctx context.Context, id domain.BatchID) (*models.Batch, error)
	FindActiveByProject(ctx context.Context, projectID string) (*models.Batch, error)
	Update(ctx context.Context, b *models.Batch) error
	List(ctx context.Context, activeOnly bool) ([]*models.Batch, error)
}

type IssuerStore interface {
	Add(ctx context.Context, addrs []domain.Address, at time.Time) error
	Remove(ctx context.Context, addr domain.Address) error
	Contains(ctx context.Context, addr domain.Address) (bool, error)
	List(ctx context.Context) ([]*models.Issuer, error)
}

type CreditReader interface {
	Get(ctx context.Context, id domain.CreditID) (*creditmodels.CarbonCredit, error)
}

type VerificationReader interface {
	LatestFor(ctx context.Context, creditID domain.CreditID) (*verificationmodels.VerificationRequest, error)
}

// LedgerFactory creates the fungible ledger paired with a new batch.
type LedgerFactory interface {
	CreateLedger(ctx context.Context, batchID domain.BatchID) (domain.Address, error)
}

type EventRecorder interface {
	Record(ctx context.Context, eventType events.Type, aggregateID string, payload any) error
}

// Service is the batch registry: it gates issuance on verification and owns
// the per-batch issuance and retirement counters.
type Service struct {
	store         Store
	issuers       IssuerStore
	credits       CreditReader
	verifications VerificationReader
	factory       LedgerFactory
	tx            txn.Runner
	admin         domain.Address
	image         string
	events        EventRecorder
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
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

// WithDocumentImage sets the image URL placed in metadata documents.
func WithDocumentImage(url string) Option {
	return func(s *Service) {
		s.image = url
	}
}

func New(
	store Store,
	issuers IssuerStore,
	credits CreditReader,
	verifications VerificationReader,
	factory LedgerFactory,
	tx txn.Runner,
	admin domain.Address,
	opts ...Option,
) *Service {
	s := &Service{
		store:         store,
		issuers:       issuers,
		credits:       credits,
		verifications: verifications,
		factory:       factory,
		tx:            tx,
		admin:         admin,
		tracer:        tracing.Tracer("batch"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MintBatch creates a batch and its ledger. Preconditions are evaluated in
// a fixed order and the first failure wins; nothing is written unless all
// of them pass.
func (s *Service) MintBatch(ctx context.Context, req models.MintBatchRequest) (_ *models.Batch, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, s.tracer, "batch.Mint",
		attribute.String("batch.project_id", req.ProjectID),
		attribute.Int64("batch.total_credits", int64(req.TotalCredits)),
		attribute.String("batch.source_credit_id", req.SourceCreditID.String()),
	)
	defer func() {
		tracing.End(span, err)
		if s.metrics != nil {
			code := ""
			if err != nil {
				code = string(dErrors.CodeOf(err))
			}
			s.metrics.ObserveMint(start, code)
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var batch *models.Batch
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ok, err := s.isIssuer(ctx, req.Issuer)
		if err != nil {
			return err
		}
		if !ok {
			return dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized issuer")
		}

		snapshot, err := s.verifiedSnapshot(ctx, req.SourceCreditID)
		if err != nil {
			return err
		}
		if req.TotalCredits > snapshot.AvailableForSale {
			return dErrors.Newf(dErrors.CodeExceedsVerifiedAmount,
				"total_credits %d exceeds verified available amount %d", req.TotalCredits, snapshot.AvailableForSale)
		}

		if _, err := s.store.FindActiveByProject(ctx, req.ProjectID); err == nil {
			return dErrors.New(dErrors.CodeDuplicateProject, "project already has an active batch")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active batch")
		}

		id, err := s.store.NextID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate batch id")
		}
		now := requestcontext.Now(ctx)
		batch, err = models.NewBatch(id, req, snapshot, now)
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, batch); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeDuplicateProject, "project already has an active batch")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store batch")
		}

		ledger, err := s.factory.CreateLedger(ctx, batch.ID)
		if err != nil {
			return err
		}
		batch.LedgerAddress = ledger
		if err := s.store.Update(ctx, batch); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link ledger")
		}

		return s.record(ctx, events.BatchMinted, batch.ID.String(), events.BatchMintedPayload{
			BatchID:           batch.ID,
			ProjectID:         batch.ProjectID,
			TotalCredits:      batch.TotalCredits,
			Recipient:         batch.ProjectOwner,
			Ledger:            ledger,
			SourceCreditID:    batch.SourceCreditID,
			RequestID:         snapshot.RequestID,
			ExternalProjectID: snapshot.ExternalProjectID,
			AvailableForSale:  snapshot.AvailableForSale,
			ExternalTimestamp: snapshot.ExternalTimestamp,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(events.BatchMinted),
		"batch_id", batch.ID,
		"project_id", batch.ProjectID,
		"total_credits", batch.TotalCredits,
		"ledger", batch.LedgerAddress,
		"issuer", req.Issuer,
	)
	return batch, nil
}

// verifiedSnapshot runs gate checks 2 and 3 and freezes the verification outcome.
func (s *Service) verifiedSnapshot(ctx context.Context, creditID domain.CreditID) (models.Snapshot, error) {
	credit, err := s.credits.Get(ctx, creditID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.Snapshot{}, dErrors.New(dErrors.CodeCreditNotVerified, "source credit does not exist")
		}
		return models.Snapshot{}, err
	}
	if !credit.IsVerified {
		return models.Snapshot{}, dErrors.New(dErrors.CodeCreditNotVerified, "source credit is not verified")
	}

	req, err := s.verifications.LatestFor(ctx, creditID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.Snapshot{}, dErrors.New(dErrors.CodeVerificationIncomplete, "source credit has no verification request")
		}
		return models.Snapshot{}, err
	}
	switch req.Status {
	case verificationmodels.StatusVerified:
	case verificationmodels.StatusFailed:
		return models.Snapshot{}, dErrors.New(dErrors.CodeVerificationFailed, "latest verification of the source credit failed")
	default:
		return models.Snapshot{}, dErrors.New(dErrors.CodeVerificationIncomplete, "verification of the source credit is still pending")
	}
	return models.Snapshot{
		RequestID:         req.RequestID,
		ExternalProjectID: req.ExternalProjectID,
		AvailableForSale:  req.AvailableForSale,
		ExternalTimestamp: req.ExternalTimestamp,
		Status:            string(req.Status),
	}, nil
}

// Deactivate removes a batch from active listings. Repeating it is a no-op.
func (s *Service) Deactivate(ctx context.Context, id domain.BatchID, caller domain.Address) (_ *models.Batch, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "batch.Deactivate", attribute.String("batch.id", id.String()))
	defer func() { tracing.End(span, err) }()

	if caller.IsZero() || caller != s.admin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the registry administrator may deactivate batches")
	}

	var (
		batch   *models.Batch
		changed bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.find(ctx, id)
		if err != nil {
			return err
		}
		changed = batch.Deactivate(requestcontext.Now(ctx))
		if !changed {
			return nil
		}
		if err := s.store.Update(ctx, batch); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate batch")
		}
		return s.record(ctx, events.BatchDeactivated, batch.ID.String(), events.BatchDeactivatedPayload{
			BatchID: batch.ID,
			By:      caller,
		})
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logAudit(ctx, string(events.BatchDeactivated), "batch_id", id, "by", caller)
		if s.metrics != nil {
			s.metrics.IncrementDeactivated()
		}
	}
	return batch, nil
}

// GetMetadata returns the batch or CodeNotFound.
func (s *Service) GetMetadata(ctx context.Context, id domain.BatchID) (*models.Batch, error) {
	var batch *models.Batch
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.find(ctx, id)
		return err
	})
	return batch, err
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*models.Batch, error) {
	var batches []*models.Batch
	err := s.tx.View(ctx, func(ctx context.Context) error {
		var err error
		batches, err = s.store.List(ctx, activeOnly)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list batches")
		}
		return nil
	})
	return batches, err
}

// Document renders the metadata document from current batch state.
func (s *Service) Document(ctx context.Context, id domain.BatchID) (models.Document, error) {
	batch, err := s.GetMetadata(ctx, id)
	if err != nil {
		return models.Document{}, err
	}
	return batch.Document(s.image), nil
}

func (s *Service) TokenURI(ctx context.Context, id domain.BatchID) (string, error) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		return "", err
	}
	uri, err := doc.TokenURI()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode metadata document")
	}
	return uri, nil
}

// RecordIssuance is called by the ledger inside its mint transaction.
func (s *Service) RecordIssuance(ctx context.Context, id domain.BatchID, amount uint64) error {
	return s.mutate(ctx, id, func(b *models.Batch, now time.Time) error {
		return b.RecordIssuance(amount, now)
	})
}

// RecordRetirement is called by the ledger inside its retire transaction.
func (s *Service) RecordRetirement(ctx context.Context, id domain.BatchID, amount uint64) error {
	return s.mutate(ctx, id, func(b *models.Batch, now time.Time) error {
		return b.RecordRetirement(amount, now)
	})
}

func (s *Service) mutate(ctx context.Context, id domain.BatchID, apply func(*models.Batch, time.Time) error) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		batch, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(batch, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.store.Update(ctx, batch); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update batch counters")
		}
		return nil
	})
}

// IsAuthorizedFor reports whether addr may mint units of the batch: any
// authorized issuer, or the batch's project owner.
func (s *Service) IsAuthorizedFor(ctx context.Context, id domain.BatchID, addr domain.Address) (bool, error) {
	var ok bool
	err := s.tx.View(ctx, func(ctx context.Context) error {
		batch, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if !addr.IsZero() && batch.ProjectOwner == addr {
			ok = true
			return nil
		}
		ok, err = s.isIssuer(ctx, addr)
		return err
	})
	return ok, err
}

func (s *Service) find(ctx context.Context, id domain.BatchID) (*models.Batch, error) {
	batch, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "batch not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load batch")
	}
	return batch, nil
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

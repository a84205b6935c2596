// Package verifier plays the external verifier role: it answers pending
// verification requests by consulting the registry API and delivering the
// result through the gateway's Fulfill entry point.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	creditmodels "carbonmint/internal/credit/models"
	"carbonmint/internal/events"
	"carbonmint/internal/verification/models"
	"carbonmint/internal/verifier/metrics"
	"carbonmint/internal/verifier/registry"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

// Gateway is the slice of the verification service the worker drives.
type Gateway interface {
	Get(ctx context.Context, id domain.RequestID) (*models.VerificationRequest, error)
	Fulfill(ctx context.Context, caller domain.Address, requestID domain.RequestID, f models.Fulfillment) (*models.VerificationRequest, error)
}

type CreditLookup interface {
	Get(ctx context.Context, id domain.CreditID) (*creditmodels.CarbonCredit, error)
}

type Registry interface {
	Lookup(ctx context.Context, projectID string) (*registry.Project, error)
}

type ClaimStore interface {
	Claim(ctx context.Context, id domain.RequestID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id domain.RequestID) error
}

// Outcome labels the result of processing one request.
type Outcome string

const (
	OutcomeVerified  Outcome = "verified"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeClaimed   Outcome = "claimed_elsewhere"
	OutcomeDeferred  Outcome = "deferred"
	OutcomeRejected  Outcome = "rejected"
	OutcomeUndecoded Outcome = "undecodable"
)

const (
	defaultClaimTTL      = 30 * time.Second
	defaultLookupTimeout = 15 * time.Second
)

// Worker fulfills verification requests as the configured verifier identity.
type Worker struct {
	gateway       Gateway
	credits       CreditLookup
	registry      Registry
	claims        ClaimStore
	identity      domain.Address
	claimTTL      time.Duration
	lookupTimeout time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithClaimTTL(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.claimTTL = d
		}
	}
}

func WithLookupTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.lookupTimeout = d
		}
	}
}

func NewWorker(gateway Gateway, credits CreditLookup, reg Registry, claims ClaimStore, identity domain.Address, opts ...Option) *Worker {
	w := &Worker{
		gateway:       gateway,
		credits:       credits,
		registry:      reg,
		claims:        claims,
		identity:      identity,
		claimTTL:      defaultClaimTTL,
		lookupTimeout: defaultLookupTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle consumes verification.requested events. Registry trouble is left
// to the sweeper so a slow registry never stalls the outbox; only claim
// store failures are returned for redelivery.
func (w *Worker) Handle(ctx context.Context, event events.Event) error {
	if event.Type != events.VerificationRequested {
		return nil
	}
	var payload events.VerificationRequestedPayload
	if err := event.Decode(&payload); err != nil {
		w.logger.ErrorContext(ctx, "dropping undecodable verification event", "event_id", event.ID, "error", err)
		w.count(OutcomeUndecoded)
		return nil
	}
	_, err := w.Process(ctx, payload.RequestID)
	return err
}

// Process answers one request. It is safe to call repeatedly for the same
// request: already fulfilled requests are skipped.
func (w *Worker) Process(ctx context.Context, requestID domain.RequestID) (Outcome, error) {
	log := w.logger.With("verification_request_id", requestID.String())

	claimed, err := w.claims.Claim(ctx, requestID, w.claimTTL)
	if err != nil {
		return "", fmt.Errorf("claim verification request: %w", err)
	}
	if !claimed {
		log.DebugContext(ctx, "verification request claimed by another worker")
		return w.count(OutcomeClaimed), nil
	}

	outcome, err := w.process(ctx, log, requestID)
	if outcome == OutcomeDeferred || err != nil {
		if relErr := w.claims.Release(ctx, requestID); relErr != nil {
			log.WarnContext(ctx, "failed to release verification claim", "error", relErr)
		}
	}
	if err != nil {
		return "", err
	}
	return w.count(outcome), nil
}

func (w *Worker) process(ctx context.Context, log *slog.Logger, requestID domain.RequestID) (Outcome, error) {
	req, err := w.gateway.Get(ctx, requestID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			log.WarnContext(ctx, "verification request no longer exists")
			return OutcomeRejected, nil
		}
		return "", fmt.Errorf("load verification request: %w", err)
	}
	if req.Fulfilled {
		return OutcomeDuplicate, nil
	}

	credit, err := w.credits.Get(ctx, req.CreditID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return w.fulfill(ctx, log, requestID, models.Fulfillment{Error: "credit not found"})
		}
		return "", fmt.Errorf("load credit: %w", err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, w.lookupTimeout)
	project, err := w.registry.Lookup(lookupCtx, credit.ProjectID)
	cancel()
	if err != nil {
		return w.onLookupError(ctx, log, requestID, credit.ProjectID, err)
	}

	return w.fulfill(ctx, log, requestID, fulfillmentFor(project))
}

func (w *Worker) onLookupError(ctx context.Context, log *slog.Logger, requestID domain.RequestID, projectID string, err error) (Outcome, error) {
	switch registry.CategoryOf(err) {
	case registry.ErrorNotFound:
		return w.fulfill(ctx, log, requestID, models.Fulfillment{Error: "project " + projectID + " not found in registry"})
	case registry.ErrorBadData:
		return w.fulfill(ctx, log, requestID, models.Fulfillment{Error: "registry returned unusable data"})
	}
	if registry.IsRetryable(err) {
		log.WarnContext(ctx, "registry lookup failed, leaving request pending", "project_id", projectID, "error", err)
	} else {
		log.ErrorContext(ctx, "registry lookup failed, leaving request pending", "project_id", projectID, "error", err)
	}
	return OutcomeDeferred, nil
}

func (w *Worker) fulfill(ctx context.Context, log *slog.Logger, requestID domain.RequestID, f models.Fulfillment) (Outcome, error) {
	req, err := w.gateway.Fulfill(ctx, w.identity, requestID, f)
	switch {
	case err == nil:
	case dErrors.HasCode(err, dErrors.CodeAlreadyFulfilled):
		return OutcomeDuplicate, nil
	case dErrors.CodeOf(err).Category() != dErrors.CategoryInternal:
		log.ErrorContext(ctx, "gateway rejected fulfillment", "error", err)
		return OutcomeRejected, nil
	default:
		return "", fmt.Errorf("fulfill verification request: %w", err)
	}

	log.InfoContext(ctx, "verification request fulfilled",
		"credit_id", req.CreditID,
		"status", req.Status,
		"available_for_sale", req.AvailableForSale,
	)
	if req.Status == models.StatusVerified {
		return OutcomeVerified, nil
	}
	return OutcomeFailed, nil
}

// fulfillmentFor maps a registry record to the callback payload. Nothing
// available for sale is a failed verification that still reports the
// registry's figures.
func fulfillmentFor(p *registry.Project) models.Fulfillment {
	available := uint64(0)
	if p.AvailableForSale > 0 {
		available = uint64(p.AvailableForSale)
	}
	f := models.Fulfillment{
		Response: models.EncodeResponse(models.Response{
			ExternalProjectID: p.GSID,
			AvailableForSale:  available,
			ExternalTimestamp: p.Timestamp,
		}),
	}
	if available == 0 {
		f.Error = "no credits available for sale"
	}
	return f
}

func (w *Worker) count(o Outcome) Outcome {
	if w.metrics != nil {
		w.metrics.IncrementOutcome(string(o))
	}
	return o
}

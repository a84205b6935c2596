package models

import (
	"strings"
	"time"

	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

// Snapshot is the verification outcome copied onto a batch at mint time.
// It never changes, even if the source credit is re-verified.
type Snapshot struct {
	RequestID         domain.RequestID `json:"request_id"`
	ExternalProjectID string           `json:"external_project_id"`
	AvailableForSale  uint64           `json:"available_for_sale"`
	ExternalTimestamp string           `json:"external_timestamp"`
	Status            string           `json:"status"`
}

// Batch is an issuance envelope for a verified project.
//
// Invariants:
//   - IssuedCredits <= TotalCredits <= Snapshot.AvailableForSale
//   - RetiredCredits <= IssuedCredits
//   - counters only ever grow
type Batch struct {
	ID             domain.BatchID  `json:"id"`
	ProjectID      string          `json:"project_id"`
	TotalCredits   uint64          `json:"total_credits"`
	IssuedCredits  uint64          `json:"issued_credits"`
	RetiredCredits uint64          `json:"retired_credits"`
	LedgerAddress  domain.Address  `json:"ledger_address"`
	SourceCreditID domain.CreditID `json:"source_credit_id"`
	ProjectOwner   domain.Address  `json:"project_owner"`
	Owner          domain.Address  `json:"owner"`
	IsActive       bool            `json:"is_active"`
	Snapshot       Snapshot        `json:"snapshot"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MintBatchRequest carries the inputs of a batch mint.
type MintBatchRequest struct {
	Recipient      domain.Address
	ProjectID      string
	TotalCredits   uint64
	SourceCreditID domain.CreditID
	Issuer         domain.Address
}

// Validate checks the request shape before any precondition is evaluated.
func (r *MintBatchRequest) Validate() error {
	if r.TotalCredits == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "total_credits must be greater than zero")
	}
	if r.TotalCredits > domain.MaxAmount {
		return dErrors.Newf(dErrors.CodeInvalidAmount, "total_credits must not exceed %d", domain.MaxAmount)
	}
	r.ProjectID = strings.TrimSpace(r.ProjectID)
	if r.ProjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "project_id is required")
	}
	if r.Recipient.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	if r.SourceCreditID == 0 {
		return dErrors.New(dErrors.CodeValidation, "source_credit_id is required")
	}
	return nil
}

// NewBatch builds an active batch with zeroed counters.
func NewBatch(id domain.BatchID, req MintBatchRequest, snapshot Snapshot, now time.Time) (*Batch, error) {
	if id == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "batch id must be allocated")
	}
	if req.TotalCredits > snapshot.AvailableForSale {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "batch total exceeds verified amount")
	}
	return &Batch{
		ID:             id,
		ProjectID:      req.ProjectID,
		TotalCredits:   req.TotalCredits,
		SourceCreditID: req.SourceCreditID,
		ProjectOwner:   req.Recipient,
		Owner:          req.Recipient,
		IsActive:       true,
		Snapshot:       snapshot,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Headroom is the number of credits that may still be issued.
func (b *Batch) Headroom() uint64 {
	return b.TotalCredits - b.IssuedCredits
}

// RecordIssuance grows IssuedCredits without passing TotalCredits.
func (b *Batch) RecordIssuance(amount uint64, now time.Time) error {
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "issuance amount must be greater than zero")
	}
	if amount > b.Headroom() {
		return dErrors.Newf(dErrors.CodeCapacityExceeded, "issuing %d exceeds remaining capacity %d", amount, b.Headroom())
	}
	b.IssuedCredits += amount
	b.UpdatedAt = now
	return nil
}

// RecordRetirement grows RetiredCredits without passing IssuedCredits.
func (b *Batch) RecordRetirement(amount uint64, now time.Time) error {
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "retirement amount must be greater than zero")
	}
	if amount > b.IssuedCredits-b.RetiredCredits {
		return dErrors.Newf(dErrors.CodeRetirementExceedsIssuance, "retiring %d exceeds outstanding issuance %d", amount, b.IssuedCredits-b.RetiredCredits)
	}
	b.RetiredCredits += amount
	b.UpdatedAt = now
	return nil
}

// Deactivate clears IsActive and reports whether anything changed.
func (b *Batch) Deactivate(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	b.IsActive = false
	b.UpdatedAt = now
	return true
}

package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

// CarbonCredit is a registered claim to a quantity of carbon offset awaiting
// external confirmation.
//
// Invariants:
//   - Amount is positive
//   - ProjectID is non-empty
//   - IsVerified flips false -> true exactly once, together with VerifiedAt
//   - every other field is immutable after registration
type CarbonCredit struct {
	ID               domain.CreditID `json:"id"`
	Owner            domain.Address  `json:"owner"`
	Amount           uint64          `json:"amount"`
	ProjectID        string          `json:"project_id"`
	VerificationHash domain.Hash     `json:"verification_hash"`
	ExpiryDate       *time.Time      `json:"expiry_date,omitempty"`
	IsVerified       bool            `json:"is_verified"`
	VerifiedAt       *time.Time      `json:"verified_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// RegisterRequest carries the caller-supplied fields of a new credit.
type RegisterRequest struct {
	Amount           uint64
	ProjectID        string
	VerificationHash domain.Hash
	ExpiryDate       *time.Time
}

// Validate checks input before any id is allocated.
func (r *RegisterRequest) Validate() error {
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	if r.Amount > domain.MaxAmount {
		return dErrors.Newf(dErrors.CodeInvalidAmount, "amount must not exceed %d", domain.MaxAmount)
	}
	r.ProjectID = strings.TrimSpace(r.ProjectID)
	if r.ProjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "project_id is required")
	}
	if !utf8.ValidString(r.ProjectID) {
		return dErrors.New(dErrors.CodeValidation, "project_id must be valid UTF-8")
	}
	if utf8.RuneCountInString(r.ProjectID) > 128 {
		return dErrors.New(dErrors.CodeValidation, "project_id must be 128 characters or less")
	}
	return nil
}

// NewCarbonCredit builds an unverified credit.
func NewCarbonCredit(id domain.CreditID, owner domain.Address, req RegisterRequest, now time.Time) (*CarbonCredit, error) {
	if id == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credit id must be allocated")
	}
	if req.Amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credit amount must be positive")
	}
	if req.ProjectID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credit project id cannot be empty")
	}
	return &CarbonCredit{
		ID:               id,
		Owner:            owner,
		Amount:           req.Amount,
		ProjectID:        req.ProjectID,
		VerificationHash: req.VerificationHash,
		ExpiryDate:       req.ExpiryDate,
		CreatedAt:        now,
	}, nil
}

// MarkVerified records successful verification. Repeated calls keep the
// first timestamp.
func (c *CarbonCredit) MarkVerified(at time.Time) {
	if c.IsVerified {
		return
	}
	c.IsVerified = true
	verifiedAt := at
	c.VerifiedAt = &verifiedAt
}

package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

// ProjectLedger is the fungible unit ledger paired with exactly one batch.
//
// Invariants:
//   - TotalSupply equals the batch's issued minus retired credits
//   - TotalRetired equals the batch's retired credits
//   - NextRetirementID starts at 1 and only grows
type ProjectLedger struct {
	Address          domain.Address      `json:"address"`
	BatchID          domain.BatchID      `json:"batch_id"`
	Name             string              `json:"name"`
	Symbol           string              `json:"symbol"`
	TotalSupply      uint64              `json:"total_supply"`
	TotalRetired     uint64              `json:"total_retired"`
	NextRetirementID domain.RetirementID `json:"next_retirement_id"`
	CreatedAt        time.Time           `json:"created_at"`
}

// NewProjectLedger builds an empty ledger for a batch.
func NewProjectLedger(addr domain.Address, batch domain.BatchID, now time.Time) (*ProjectLedger, error) {
	if addr.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ledger address must be set")
	}
	if batch == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ledger batch must be set")
	}
	return &ProjectLedger{
		Address:          addr,
		BatchID:          batch,
		Name:             fmt.Sprintf("Carbon Credit Batch #%d", batch),
		Symbol:           fmt.Sprintf("CCB%d", batch),
		NextRetirementID: 1,
		CreatedAt:        now,
	}, nil
}

// RetirementRecord is an immutable proof that units were burned.
type RetirementRecord struct {
	Ledger    domain.Address      `json:"ledger"`
	ID        domain.RetirementID `json:"id"`
	Holder    domain.Address      `json:"holder"`
	Amount    uint64              `json:"amount"`
	Reason    string              `json:"reason"`
	RetiredAt time.Time           `json:"retired_at"`
}

// MintRequest carries the inputs of a ledger mint.
type MintRequest struct {
	Ledger domain.Address
	To     domain.Address
	Amount uint64
	Issuer domain.Address
}

func (r *MintRequest) Validate() error {
	if err := validateAmount(r.Amount); err != nil {
		return err
	}
	if r.To.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	return nil
}

// RetireRequest carries the inputs of a retirement.
type RetireRequest struct {
	Ledger domain.Address
	Amount uint64
	Reason string
	Holder domain.Address
}

func (r *RetireRequest) Validate() error {
	if err := validateAmount(r.Amount); err != nil {
		return err
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeEmptyReason, "retirement reason is required")
	}
	if !utf8.ValidString(r.Reason) {
		return dErrors.New(dErrors.CodeValidation, "retirement reason must be valid UTF-8")
	}
	if utf8.RuneCountInString(r.Reason) > 512 {
		return dErrors.New(dErrors.CodeValidation, "retirement reason must be 512 characters or less")
	}
	if r.Holder.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	return nil
}

func validateAmount(amount uint64) error {
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	if amount > domain.MaxAmount {
		return dErrors.Newf(dErrors.CodeInvalidAmount, "amount must not exceed %d", domain.MaxAmount)
	}
	return nil
}

// CertificateNumber formats the public identifier of a retirement.
func CertificateNumber(batch domain.BatchID, id domain.RetirementID) string {
	return fmt.Sprintf("RET-%d-%d", batch, id)
}

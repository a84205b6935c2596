package handler

import (
	"strings"

	"carbonmint/internal/batch/models"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

// MintRequest is the HTTP request body for POST /batches.
type MintRequest struct {
	Recipient      string `json:"recipient"`
	ProjectID      string `json:"project_id"`
	TotalCredits   uint64 `json:"total_credits"`
	SourceCreditID uint64 `json:"source_credit_id"`

	recipient domain.Address
}

func (r *MintRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ProjectID = strings.TrimSpace(r.ProjectID)
	addr, err := domain.ParseAddress(strings.TrimSpace(r.Recipient))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "recipient must be a 0x-prefixed 20-byte hex address")
	}
	r.recipient = addr
	return nil
}

func (r *MintRequest) toModel(issuer domain.Address) models.MintBatchRequest {
	return models.MintBatchRequest{
		Recipient:      r.recipient,
		ProjectID:      r.ProjectID,
		TotalCredits:   r.TotalCredits,
		SourceCreditID: domain.CreditID(r.SourceCreditID),
		Issuer:         issuer,
	}
}

// IssuerRequest is the HTTP request body for POST /issuers.
type IssuerRequest struct {
	Address string `json:"address"`

	parsed domain.Address
}

func (r *IssuerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	addr, err := domain.ParseAddress(strings.TrimSpace(r.Address))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "address must be a 0x-prefixed 20-byte hex address")
	}
	r.parsed = addr
	return nil
}

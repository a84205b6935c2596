package handler

import (
	"strings"
	"time"

	"carbonmint/internal/credit/models"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /credits.
type RegisterRequest struct {
	Amount           uint64     `json:"amount"`
	ProjectID        string     `json:"project_id"`
	VerificationHash string     `json:"verification_hash,omitempty"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`

	parsedHash domain.Hash
}

// Validate parses the hash. Amount and project checks live in the model so
// every entry point applies them.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ProjectID = strings.TrimSpace(r.ProjectID)
	hash, err := domain.ParseHash(r.VerificationHash)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "verification_hash must be a 0x-prefixed 32-byte hex value")
	}
	r.parsedHash = hash
	return nil
}

func (r *RegisterRequest) toModel() models.RegisterRequest {
	return models.RegisterRequest{
		Amount:           r.Amount,
		ProjectID:        r.ProjectID,
		VerificationHash: r.parsedHash,
		ExpiryDate:       r.ExpiryDate,
	}
}

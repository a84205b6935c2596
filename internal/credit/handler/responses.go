package handler

import (
	"time"

	"carbonmint/internal/credit/models"
)

// CreditResponse is the HTTP representation of a credit.
type CreditResponse struct {
	ID               uint64     `json:"id"`
	Owner            string     `json:"owner"`
	Amount           uint64     `json:"amount"`
	ProjectID        string     `json:"project_id"`
	VerificationHash string     `json:"verification_hash"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
	IsVerified       bool       `json:"is_verified"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type ListResponse struct {
	Credits []*CreditResponse `json:"credits"`
}

func FromCredit(c *models.CarbonCredit) *CreditResponse {
	return &CreditResponse{
		ID:               uint64(c.ID),
		Owner:            c.Owner.String(),
		Amount:           c.Amount,
		ProjectID:        c.ProjectID,
		VerificationHash: c.VerificationHash.String(),
		ExpiryDate:       c.ExpiryDate,
		IsVerified:       c.IsVerified,
		VerifiedAt:       c.VerifiedAt,
		CreatedAt:        c.CreatedAt,
	}
}

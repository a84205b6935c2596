package handler

import (
	"time"

	"carbonmint/internal/verification/models"
)

type VerificationResponse struct {
	RequestID         string     `json:"request_id"`
	CreditID          uint64     `json:"credit_id"`
	Requester         string     `json:"requester"`
	Status            string     `json:"status"`
	Fulfilled         bool       `json:"fulfilled"`
	ExternalProjectID string     `json:"external_project_id,omitempty"`
	AvailableForSale  uint64     `json:"available_for_sale"`
	ExternalTimestamp string     `json:"external_timestamp,omitempty"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	RequestedAt       time.Time  `json:"requested_at"`
	FulfilledAt       *time.Time `json:"fulfilled_at,omitempty"`
}

func FromRequest(r *models.VerificationRequest) *VerificationResponse {
	return &VerificationResponse{
		RequestID:         r.RequestID.String(),
		CreditID:          uint64(r.CreditID),
		Requester:         r.Requester.String(),
		Status:            string(r.Status),
		Fulfilled:         r.Fulfilled,
		ExternalProjectID: r.ExternalProjectID,
		AvailableForSale:  r.AvailableForSale,
		ExternalTimestamp: r.ExternalTimestamp,
		FailureReason:     r.FailureReason,
		RequestedAt:       r.RequestedAt,
		FulfilledAt:       r.FulfilledAt,
	}
}

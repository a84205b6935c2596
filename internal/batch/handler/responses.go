package handler

import (
	"time"

	"carbonmint/internal/batch/models"
)

type SnapshotResponse struct {
	RequestID         string `json:"request_id"`
	ExternalProjectID string `json:"external_project_id"`
	AvailableForSale  uint64 `json:"available_for_sale"`
	ExternalTimestamp string `json:"external_timestamp"`
	Status            string `json:"status"`
}

// BatchResponse is the HTTP representation of a batch.
type BatchResponse struct {
	ID             uint64           `json:"id"`
	ProjectID      string           `json:"project_id"`
	TotalCredits   uint64           `json:"total_credits"`
	IssuedCredits  uint64           `json:"issued_credits"`
	RetiredCredits uint64           `json:"retired_credits"`
	LedgerAddress  string           `json:"ledger_address"`
	SourceCreditID uint64           `json:"source_credit_id"`
	ProjectOwner   string           `json:"project_owner"`
	Owner          string           `json:"owner"`
	IsActive       bool             `json:"is_active"`
	Verification   SnapshotResponse `json:"verification"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type ListResponse struct {
	Batches []*BatchResponse `json:"batches"`
}

type TokenURIResponse struct {
	BatchID  uint64 `json:"batch_id"`
	TokenURI string `json:"token_uri"`
}

type IssuerResponse struct {
	Address      string    `json:"address"`
	AuthorizedAt time.Time `json:"authorized_at"`
}

type IssuersResponse struct {
	Issuers []IssuerResponse `json:"issuers"`
}

func FromBatch(b *models.Batch) *BatchResponse {
	return &BatchResponse{
		ID:             uint64(b.ID),
		ProjectID:      b.ProjectID,
		TotalCredits:   b.TotalCredits,
		IssuedCredits:  b.IssuedCredits,
		RetiredCredits: b.RetiredCredits,
		LedgerAddress:  b.LedgerAddress.String(),
		SourceCreditID: uint64(b.SourceCreditID),
		ProjectOwner:   b.ProjectOwner.String(),
		Owner:          b.Owner.String(),
		IsActive:       b.IsActive,
		Verification: SnapshotResponse{
			RequestID:         b.Snapshot.RequestID.String(),
			ExternalProjectID: b.Snapshot.ExternalProjectID,
			AvailableForSale:  b.Snapshot.AvailableForSale,
			ExternalTimestamp: b.Snapshot.ExternalTimestamp,
			Status:            b.Snapshot.Status,
		},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

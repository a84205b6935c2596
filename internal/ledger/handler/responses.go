package handler

import (
	"time"

	"carbonmint/internal/ledger/models"
)

// LedgerResponse is the HTTP representation of a project ledger.
type LedgerResponse struct {
	Address          string    `json:"address"`
	BatchID          uint64    `json:"batch_id"`
	Name             string    `json:"name"`
	Symbol           string    `json:"symbol"`
	TotalSupply      uint64    `json:"total_supply"`
	TotalRetired     uint64    `json:"total_retired"`
	NextRetirementID uint64    `json:"next_retirement_id"`
	CreatedAt        time.Time `json:"created_at"`
}

type RetirementResponse struct {
	Ledger            string    `json:"ledger"`
	ID                uint64    `json:"id"`
	CertificateNumber string    `json:"certificate_number,omitempty"`
	Holder            string    `json:"holder"`
	Amount            uint64    `json:"amount"`
	Reason            string    `json:"reason"`
	RetiredAt         time.Time `json:"retired_at"`
}

type BalanceResponse struct {
	Ledger  string `json:"ledger"`
	Holder  string `json:"holder"`
	Balance uint64 `json:"balance"`
}

type RetirementIDsResponse struct {
	Holder        string   `json:"holder"`
	RetirementIDs []uint64 `json:"retirement_ids"`
}

func FromLedger(l *models.ProjectLedger) *LedgerResponse {
	return &LedgerResponse{
		Address:          l.Address.String(),
		BatchID:          uint64(l.BatchID),
		Name:             l.Name,
		Symbol:           l.Symbol,
		TotalSupply:      l.TotalSupply,
		TotalRetired:     l.TotalRetired,
		NextRetirementID: uint64(l.NextRetirementID),
		CreatedAt:        l.CreatedAt,
	}
}

func FromRecord(r *models.RetirementRecord) *RetirementResponse {
	return &RetirementResponse{
		Ledger:    r.Ledger.String(),
		ID:        uint64(r.ID),
		Holder:    r.Holder.String(),
		Amount:    r.Amount,
		Reason:    r.Reason,
		RetiredAt: r.RetiredAt,
	}
}

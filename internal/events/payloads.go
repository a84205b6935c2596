package events

import (
	"time"

	"carbonmint/pkg/domain"
)

// Payload shapes for each event type. Consumers decode with Event.Decode.

type CreditRegisteredPayload struct {
	CreditID  domain.CreditID `json:"credit_id"`
	Owner     domain.Address  `json:"owner"`
	Amount    uint64          `json:"amount"`
	ProjectID string          `json:"project_id"`
}

type VerificationRequestedPayload struct {
	RequestID domain.RequestID `json:"request_id"`
	CreditID  domain.CreditID  `json:"credit_id"`
	ProjectID string           `json:"project_id"`
	Requester domain.Address   `json:"requester"`
}

type VerificationFulfilledPayload struct {
	RequestID         domain.RequestID `json:"request_id"`
	CreditID          domain.CreditID  `json:"credit_id"`
	Status            string           `json:"status"`
	ExternalProjectID string           `json:"external_project_id,omitempty"`
	AvailableForSale  uint64           `json:"available_for_sale"`
	ExternalTimestamp string           `json:"external_timestamp"`
}

type BatchMintedPayload struct {
	BatchID           domain.BatchID   `json:"batch_id"`
	ProjectID         string           `json:"project_id"`
	TotalCredits      uint64           `json:"total_credits"`
	Recipient         domain.Address   `json:"recipient"`
	Ledger            domain.Address   `json:"ledger"`
	SourceCreditID    domain.CreditID  `json:"source_credit_id"`
	RequestID         domain.RequestID `json:"request_id"`
	ExternalProjectID string           `json:"external_project_id"`
	AvailableForSale  uint64           `json:"available_for_sale"`
	ExternalTimestamp string           `json:"external_timestamp"`
}

type BatchDeactivatedPayload struct {
	BatchID domain.BatchID `json:"batch_id"`
	By      domain.Address `json:"by"`
}

type LedgerCreatedPayload struct {
	BatchID domain.BatchID `json:"batch_id"`
	Ledger  domain.Address `json:"ledger"`
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`
}

type LedgerMintedPayload struct {
	Ledger  domain.Address `json:"ledger"`
	BatchID domain.BatchID `json:"batch_id"`
	To      domain.Address `json:"to"`
	Amount  uint64         `json:"amount"`
	Issuer  domain.Address `json:"issuer"`
}

type LedgerRetiredPayload struct {
	Ledger       domain.Address      `json:"ledger"`
	BatchID      domain.BatchID      `json:"batch_id"`
	RetirementID domain.RetirementID `json:"retirement_id"`
	Holder       domain.Address      `json:"holder"`
	Amount       uint64              `json:"amount"`
	Reason       string              `json:"reason"`
	RetiredAt    time.Time           `json:"retired_at"`
}

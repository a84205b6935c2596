package models

import (
	"time"

	"carbonmint/pkg/domain"
)

// Issuer is an address authorized to mint batches and ledger units.
type Issuer struct {
	Address      domain.Address `json:"address"`
	AuthorizedAt time.Time      `json:"authorized_at"`
}

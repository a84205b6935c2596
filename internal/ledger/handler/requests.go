package handler

import (
	"strings"

	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

// MintRequest is the HTTP request body for POST /ledgers/{address}/mint.
type MintRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`

	to domain.Address
}

func (r *MintRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	addr, err := domain.ParseAddress(strings.TrimSpace(r.To))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "to must be a 0x-prefixed 20-byte hex address")
	}
	r.to = addr
	return nil
}

// RetireRequest is the HTTP request body for POST /ledgers/{address}/retire.
// Reason trimming and length checks happen in the model.
type RetireRequest struct {
	Amount uint64 `json:"amount"`
	Reason string `json:"reason"`
}

func (r *RetireRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

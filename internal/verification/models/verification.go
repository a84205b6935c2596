package models

import (
	"strconv"
	"strings"
	"time"

	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

// Status is the lifecycle state of a verification request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusVerified || s == StatusFailed
}

func (s Status) String() string { return string(s) }

// VerificationRequest correlates an outbound verification call with the
// callback that completes it.
//
// Invariants:
//   - Status is Pending iff Fulfilled is false
//   - once Fulfilled, no field changes again
type VerificationRequest struct {
	RequestID         domain.RequestID `json:"request_id"`
	CreditID          domain.CreditID  `json:"credit_id"`
	Requester         domain.Address   `json:"requester"`
	Status            Status           `json:"status"`
	Fulfilled         bool             `json:"fulfilled"`
	ExternalProjectID string           `json:"external_project_id"`
	AvailableForSale  uint64           `json:"available_for_sale"`
	ExternalTimestamp string           `json:"external_timestamp"`
	FailureReason     string           `json:"failure_reason,omitempty"`
	RequestedAt       time.Time        `json:"requested_at"`
	FulfilledAt       *time.Time       `json:"fulfilled_at,omitempty"`
}

// NewPending builds a request awaiting its callback.
func NewPending(id domain.RequestID, credit domain.CreditID, requester domain.Address, now time.Time) (*VerificationRequest, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request id must be set")
	}
	if credit == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credit id must be set")
	}
	return &VerificationRequest{
		RequestID:   id,
		CreditID:    credit,
		Requester:   requester,
		Status:      StatusPending,
		RequestedAt: now,
	}, nil
}

// Response is the decoded verifier payload.
type Response struct {
	ExternalProjectID string
	AvailableForSale  uint64
	ExternalTimestamp string
}

// ParseResponse decodes "externalProjectId|availableForSale|externalTimestamp".
func ParseResponse(raw string) (Response, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return Response{}, dErrors.Newf(dErrors.CodeValidation, "verifier response must have 3 fields, got %d", len(parts))
	}
	projectID := strings.TrimSpace(parts[0])
	if projectID == "" {
		return Response{}, dErrors.New(dErrors.CodeValidation, "verifier response is missing the external project id")
	}
	available, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Response{}, dErrors.New(dErrors.CodeValidation, "verifier response amount must be a non-negative integer")
	}
	if available > domain.MaxAmount {
		return Response{}, dErrors.Newf(dErrors.CodeValidation, "verifier response amount must not exceed %d", domain.MaxAmount)
	}
	return Response{
		ExternalProjectID: projectID,
		AvailableForSale:  available,
		ExternalTimestamp: strings.TrimSpace(parts[2]),
	}, nil
}

// EncodeResponse is the inverse of ParseResponse.
func EncodeResponse(r Response) string {
	return r.ExternalProjectID + "|" + strconv.FormatUint(r.AvailableForSale, 10) + "|" + r.ExternalTimestamp
}

// Fulfillment is the callback delivered by the verifier. An empty Error
// means the lookup succeeded.
type Fulfillment struct {
	Response string
	Error    string
}

func (f Fulfillment) Success() bool {
	return strings.TrimSpace(f.Error) == ""
}

// Apply moves the request to its terminal state. A success callback whose
// payload does not parse is rejected and leaves the request untouched.
func (r *VerificationRequest) Apply(f Fulfillment, at time.Time) error {
	if r.Fulfilled {
		return dErrors.New(dErrors.CodeAlreadyFulfilled, "verification request already fulfilled")
	}
	if f.Success() {
		resp, err := ParseResponse(f.Response)
		if err != nil {
			return err
		}
		r.copyResponse(resp)
		r.Status = StatusVerified
	} else {
		if resp, err := ParseResponse(f.Response); err == nil {
			r.copyResponse(resp)
		}
		r.FailureReason = strings.TrimSpace(f.Error)
		r.Status = StatusFailed
	}
	r.Fulfilled = true
	fulfilledAt := at
	r.FulfilledAt = &fulfilledAt
	return nil
}

func (r *VerificationRequest) copyResponse(resp Response) {
	r.ExternalProjectID = resp.ExternalProjectID
	r.AvailableForSale = resp.AvailableForSale
	r.ExternalTimestamp = resp.ExternalTimestamp
}

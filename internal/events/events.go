// Package events implements the transactional outbox that carries domain
// events out of the core.
//
// Components append events inside the global transaction, so an event exists
// exactly when the state change it describes was committed. The Relay reads
// unpublished entries afterwards and hands them to a Publisher (Kafka or the
// in-process Bus); delivery is at-least-once.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carbonmint/pkg/requestcontext"
)

// Type names a domain event.
type Type string

const (
	CreditRegistered      Type = "credit.registered"
	VerificationRequested Type = "verification.requested"
	VerificationFulfilled Type = "verification.fulfilled"
	BatchMinted           Type = "batch.minted"
	BatchDeactivated      Type = "batch.deactivated"
	LedgerCreated         Type = "ledger.created"
	LedgerMinted          Type = "ledger.minted"
	LedgerRetired         Type = "ledger.retired"
)

// Event is one outbox entry.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        Type            `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Store persists outbox entries.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListUnpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Recorder builds events and appends them to the outbox. Call it inside the
// transaction whose effects the event describes.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record marshals payload and appends a new entry.
func (r *Recorder) Record(ctx context.Context, eventType Type, aggregateID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return r.store.Append(ctx, Event{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     raw,
		CreatedAt:   requestcontext.Now(ctx),
	})
}

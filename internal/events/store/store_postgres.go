package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"carbonmint/internal/events"
	"carbonmint/internal/platform/postgres"
)

// PostgresOutbox writes entries to the outbox table, joining any
// transaction carried in the context.
type PostgresOutbox struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

func (s *PostgresOutbox) Append(ctx context.Context, event events.Event) error {
	query := `
		INSERT INTO outbox (id, event_type, aggregate_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Type),
		event.AggregateID,
		[]byte(event.Payload),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresOutbox) ListUnpublished(ctx context.Context, limit int) ([]events.Event, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished outbox entries: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e         events.Event
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&e.ID, &eventType, &e.AggregateID, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		e.Type = events.Type(eventType)
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresOutbox) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET published_at = $2 WHERE id = ANY($1::uuid[]) AND published_at IS NULL`,
		pq.Array(raw), at,
	)
	if err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbonmint/internal/platform/postgres"
	"carbonmint/internal/verification/models"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/sentinel"
)

// PostgresRequestStore persists verification requests in PostgreSQL.
type PostgresRequestStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRequestStore {
	return &PostgresRequestStore{db: db}
}

const requestColumns = `request_id, credit_id, requester, status, fulfilled, external_project_id,
	available_for_sale, external_timestamp, failure_reason, requested_at, fulfilled_at`

func (s *PostgresRequestStore) NextSequence(ctx context.Context) (uint64, error) {
	return postgres.NextID(ctx, s.db, "verification_sequence")
}

func (s *PostgresRequestStore) Create(ctx context.Context, req *models.VerificationRequest) error {
	query := `
		INSERT INTO verification_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		req.RequestID.String(),
		int64(req.CreditID),
		req.Requester.String(),
		string(req.Status),
		req.Fulfilled,
		req.ExternalProjectID,
		int64(req.AvailableForSale),
		req.ExternalTimestamp,
		req.FailureReason,
		req.RequestedAt,
		req.FulfilledAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert verification request: %w", err)
	}
	return nil
}

func (s *PostgresRequestStore) FindByID(ctx context.Context, id domain.RequestID) (*models.VerificationRequest, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM verification_requests WHERE request_id = $1`, id.String())
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification request: %w", err)
	}
	return req, nil
}

func (s *PostgresRequestStore) Update(ctx context.Context, req *models.VerificationRequest) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE verification_requests
		SET status = $2, fulfilled = $3, external_project_id = $4, available_for_sale = $5,
		    external_timestamp = $6, failure_reason = $7, fulfilled_at = $8
		WHERE request_id = $1
	`,
		req.RequestID.String(),
		string(req.Status),
		req.Fulfilled,
		req.ExternalProjectID,
		int64(req.AvailableForSale),
		req.ExternalTimestamp,
		req.FailureReason,
		req.FulfilledAt,
	)
	if err != nil {
		return fmt.Errorf("update verification request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresRequestStore) RequestFor(ctx context.Context, credit domain.CreditID) (domain.RequestID, error) {
	var raw string
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT request_id FROM credit_requests WHERE credit_id = $1`, int64(credit)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RequestID{}, sentinel.ErrNotFound
		}
		return domain.RequestID{}, fmt.Errorf("find request for credit: %w", err)
	}
	return domain.ParseRequestID(raw)
}

func (s *PostgresRequestStore) SetRequestFor(ctx context.Context, credit domain.CreditID, id domain.RequestID) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO credit_requests (credit_id, request_id)
		VALUES ($1, $2)
		ON CONFLICT (credit_id) DO UPDATE SET request_id = EXCLUDED.request_id
	`, int64(credit), id.String())
	if err != nil {
		return fmt.Errorf("set request for credit: %w", err)
	}
	return nil
}

func (s *PostgresRequestStore) ListPending(ctx context.Context, requestedBefore time.Time) ([]*models.VerificationRequest, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+requestColumns+` FROM verification_requests
		WHERE status = $1 AND requested_at < $2
		ORDER BY requested_at
	`, string(models.StatusPending), requestedBefore)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	var out []*models.VerificationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*models.VerificationRequest, error) {
	var (
		req               models.VerificationRequest
		id, requester     string
		status            string
		credit, available int64
		fulfilledAt       sql.NullTime
	)
	if err := row.Scan(&id, &credit, &requester, &status, &req.Fulfilled, &req.ExternalProjectID,
		&available, &req.ExternalTimestamp, &req.FailureReason, &req.RequestedAt, &fulfilledAt); err != nil {
		return nil, err
	}
	var err error
	if req.RequestID, err = domain.ParseRequestID(id); err != nil {
		return nil, err
	}
	if req.Requester, err = domain.ParseAddress(requester); err != nil {
		return nil, err
	}
	req.CreditID = domain.CreditID(credit)
	req.AvailableForSale = uint64(available)
	req.Status = models.Status(status)
	if fulfilledAt.Valid {
		t := fulfilledAt.Time
		req.FulfilledAt = &t
	}
	return &req, nil
}

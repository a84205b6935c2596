package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carbonmint/internal/batch/models"
	"carbonmint/internal/platform/postgres"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/sentinel"
)

// PostgresBatchStore persists batches in PostgreSQL. The partial unique
// index on active project ids backs the one-active-batch rule.
type PostgresBatchStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresBatchStore {
	return &PostgresBatchStore{db: db}
}

const batchColumns = `id, project_id, total_credits, issued_credits, retired_credits, ledger_address,
	source_credit_id, project_owner, owner, is_active, snapshot_request_id, snapshot_external_project_id,
	snapshot_available_for_sale, snapshot_external_timestamp, snapshot_status, created_at, updated_at`

func (s *PostgresBatchStore) NextID(ctx context.Context) (domain.BatchID, error) {
	id, err := postgres.NextID(ctx, s.db, "batches")
	return domain.BatchID(id), err
}

func (s *PostgresBatchStore) Create(ctx context.Context, b *models.Batch) error {
	query := `
		INSERT INTO batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		int64(b.ID),
		b.ProjectID,
		int64(b.TotalCredits),
		int64(b.IssuedCredits),
		int64(b.RetiredCredits),
		b.LedgerAddress.String(),
		int64(b.SourceCreditID),
		b.ProjectOwner.String(),
		b.Owner.String(),
		b.IsActive,
		b.Snapshot.RequestID.String(),
		b.Snapshot.ExternalProjectID,
		int64(b.Snapshot.AvailableForSale),
		b.Snapshot.ExternalTimestamp,
		b.Snapshot.Status,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (s *PostgresBatchStore) FindByID(ctx context.Context, id domain.BatchID) (*models.Batch, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE id = $1`, int64(id))
	return s.scanOne(row)
}

func (s *PostgresBatchStore) FindActiveByProject(ctx context.Context, projectID string) (*models.Batch, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE project_id = $1 AND is_active`, projectID)
	return s.scanOne(row)
}

func (s *PostgresBatchStore) Update(ctx context.Context, b *models.Batch) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE batches
		SET issued_credits = $2, retired_credits = $3, ledger_address = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`, int64(b.ID), int64(b.IssuedCredits), int64(b.RetiredCredits), b.LedgerAddress.String(), b.IsActive, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresBatchStore) List(ctx context.Context, activeOnly bool) ([]*models.Batch, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE is_active OR NOT $1 ORDER BY id`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []*models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresBatchStore) scanOne(row *sql.Row) (*models.Batch, error) {
	b, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*models.Batch, error) {
	var (
		b                           models.Batch
		id, total, issued, retired  int64
		source, available           int64
		ledger, projectOwner, owner string
		requestID                   string
	)
	if err := row.Scan(&id, &b.ProjectID, &total, &issued, &retired, &ledger,
		&source, &projectOwner, &owner, &b.IsActive, &requestID, &b.Snapshot.ExternalProjectID,
		&available, &b.Snapshot.ExternalTimestamp, &b.Snapshot.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ID = domain.BatchID(id)
	b.TotalCredits = uint64(total)
	b.IssuedCredits = uint64(issued)
	b.RetiredCredits = uint64(retired)
	b.SourceCreditID = domain.CreditID(source)
	b.Snapshot.AvailableForSale = uint64(available)

	var err error
	if b.LedgerAddress, err = domain.ParseAddress(ledger); err != nil {
		return nil, err
	}
	if b.ProjectOwner, err = domain.ParseAddress(projectOwner); err != nil {
		return nil, err
	}
	if b.Owner, err = domain.ParseAddress(owner); err != nil {
		return nil, err
	}
	if b.Snapshot.RequestID, err = domain.ParseRequestID(requestID); err != nil {
		return nil, err
	}
	return &b, nil
}

// PostgresIssuerStore persists the authorized issuer set.
type PostgresIssuerStore struct {
	db *sql.DB
}

func NewPostgresIssuers(db *sql.DB) *PostgresIssuerStore {
	return &PostgresIssuerStore{db: db}
}

func (s *PostgresIssuerStore) Add(ctx context.Context, addrs []domain.Address, at time.Time) error {
	if len(addrs) == 0 {
		return nil
	}
	values := make([]string, len(addrs))
	for i, a := range addrs {
		values[i] = a.String()
	}
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO issuers (address, authorized_at)
		SELECT unnest($1::text[]), $2
		ON CONFLICT (address) DO NOTHING
	`, pq.Array(values), at)
	if err != nil {
		return fmt.Errorf("add issuers: %w", err)
	}
	return nil
}

func (s *PostgresIssuerStore) Remove(ctx context.Context, addr domain.Address) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM issuers WHERE address = $1`, addr.String())
	if err != nil {
		return fmt.Errorf("remove issuer: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresIssuerStore) Contains(ctx context.Context, addr domain.Address) (bool, error) {
	var exists bool
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM issuers WHERE address = $1)`, addr.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check issuer: %w", err)
	}
	return exists, nil
}

func (s *PostgresIssuerStore) List(ctx context.Context) ([]*models.Issuer, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `SELECT address, authorized_at FROM issuers ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("list issuers: %w", err)
	}
	defer rows.Close()

	var out []*models.Issuer
	for rows.Next() {
		var (
			raw string
			i   models.Issuer
		)
		if err := rows.Scan(&raw, &i.AuthorizedAt); err != nil {
			return nil, fmt.Errorf("scan issuer: %w", err)
		}
		if i.Address, err = domain.ParseAddress(raw); err != nil {
			return nil, err
		}
		out = append(out, &i)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbonmint/internal/credit/models"
	"carbonmint/internal/platform/postgres"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/sentinel"
)

// PostgresCreditStore persists credits in PostgreSQL. Writes join the
// transaction carried in the context.
type PostgresCreditStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresCreditStore {
	return &PostgresCreditStore{db: db}
}

const creditColumns = `id, owner, amount, project_id, verification_hash, expiry_date, is_verified, verified_at, created_at`

func (s *PostgresCreditStore) NextID(ctx context.Context) (domain.CreditID, error) {
	id, err := postgres.NextID(ctx, s.db, "credits")
	return domain.CreditID(id), err
}

func (s *PostgresCreditStore) Create(ctx context.Context, c *models.CarbonCredit) error {
	query := `
		INSERT INTO credits (` + creditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		int64(c.ID),
		c.Owner.String(),
		int64(c.Amount),
		c.ProjectID,
		c.VerificationHash.String(),
		c.ExpiryDate,
		c.IsVerified,
		c.VerifiedAt,
		c.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credit: %w", err)
	}
	return nil
}

func (s *PostgresCreditStore) FindByID(ctx context.Context, id domain.CreditID) (*models.CarbonCredit, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+creditColumns+` FROM credits WHERE id = $1`, int64(id))
	c, err := scanCredit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credit: %w", err)
	}
	return c, nil
}

func (s *PostgresCreditStore) ListByOwner(ctx context.Context, owner domain.Address) ([]*models.CarbonCredit, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+creditColumns+` FROM credits WHERE owner = $1 ORDER BY id`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	defer rows.Close()

	var out []*models.CarbonCredit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresCreditStore) MarkVerified(ctx context.Context, id domain.CreditID, at time.Time) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE credits
		SET is_verified = TRUE, verified_at = COALESCE(verified_at, $2)
		WHERE id = $1
	`, int64(id), at)
	if err != nil {
		return fmt.Errorf("mark credit verified: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredit(row scanner) (*models.CarbonCredit, error) {
	var (
		c          models.CarbonCredit
		id, amount int64
		owner      string
		hash       string
		expiry     sql.NullTime
		verifiedAt sql.NullTime
	)
	if err := row.Scan(&id, &owner, &amount, &c.ProjectID, &hash, &expiry, &c.IsVerified, &verifiedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ID = domain.CreditID(id)
	c.Amount = uint64(amount)
	var err error
	if c.Owner, err = domain.ParseAddress(owner); err != nil {
		return nil, err
	}
	if c.VerificationHash, err = domain.ParseHash(hash); err != nil {
		return nil, err
	}
	if expiry.Valid {
		t := expiry.Time
		c.ExpiryDate = &t
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		c.VerifiedAt = &t
	}
	return &c, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carbonmint/internal/ledger/models"
	"carbonmint/internal/platform/postgres"
	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/sentinel"
)

// PostgresLedgerStore persists ledgers, balances, and retirements. One
// ledgers row carries both directions of the batch <-> ledger mapping.
type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

const ledgerColumns = `address, batch_id, name, symbol, total_supply, total_retired, next_retirement_id, created_at`

func (s *PostgresLedgerStore) Create(ctx context.Context, l *models.ProjectLedger) error {
	conn := postgres.Conn(ctx, s.db)
	var exists bool
	if err := conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledgers WHERE batch_id = $1)`, int64(l.BatchID)).Scan(&exists); err != nil {
		return fmt.Errorf("check ledger for batch: %w", err)
	}
	if exists {
		return sentinel.ErrAlreadyUsed
	}
	_, err := conn.ExecContext(ctx, `
		INSERT INTO ledgers (`+ledgerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		l.Address.String(),
		int64(l.BatchID),
		l.Name,
		l.Symbol,
		int64(l.TotalSupply),
		int64(l.TotalRetired),
		int64(l.NextRetirementID),
		l.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert ledger: %w", err)
	}
	return nil
}

func (s *PostgresLedgerStore) FindByAddress(ctx context.Context, addr domain.Address) (*models.ProjectLedger, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledgers WHERE address = $1`, addr.String())
	return scanLedgerRow(row)
}

func (s *PostgresLedgerStore) FindByBatch(ctx context.Context, batch domain.BatchID) (*models.ProjectLedger, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledgers WHERE batch_id = $1`, int64(batch))
	return scanLedgerRow(row)
}

func (s *PostgresLedgerStore) Update(ctx context.Context, l *models.ProjectLedger) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE ledgers
		SET total_supply = $2, total_retired = $3, next_retirement_id = $4
		WHERE address = $1
	`, l.Address.String(), int64(l.TotalSupply), int64(l.TotalRetired), int64(l.NextRetirementID))
	if err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresLedgerStore) Balance(ctx context.Context, ledger, holder domain.Address) (uint64, error) {
	var balance int64
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT balance FROM ledger_balances WHERE ledger = $1 AND holder = $2`,
		ledger.String(), holder.String()).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return uint64(balance), nil
}

func (s *PostgresLedgerStore) SetBalance(ctx context.Context, ledger, holder domain.Address, amount uint64) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO ledger_balances (ledger, holder, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (ledger, holder) DO UPDATE SET balance = EXCLUDED.balance
	`, ledger.String(), holder.String(), int64(amount))
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func (s *PostgresLedgerStore) AppendRetirement(ctx context.Context, r *models.RetirementRecord) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO retirements (ledger, id, holder, amount, reason, retired_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.Ledger.String(), int64(r.ID), r.Holder.String(), int64(r.Amount), r.Reason, r.RetiredAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert retirement: %w", err)
	}
	return nil
}

func (s *PostgresLedgerStore) FindRetirement(ctx context.Context, ledger domain.Address, id domain.RetirementID) (*models.RetirementRecord, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT ledger, id, holder, amount, reason, retired_at
		FROM retirements WHERE ledger = $1 AND id = $2
	`, ledger.String(), int64(id))
	r, err := scanRetirement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find retirement: %w", err)
	}
	return r, nil
}

func (s *PostgresLedgerStore) ListRetirements(ctx context.Context, ledger, holder domain.Address) ([]*models.RetirementRecord, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT ledger, id, holder, amount, reason, retired_at
		FROM retirements WHERE ledger = $1 AND holder = $2
		ORDER BY id
	`, ledger.String(), holder.String())
	if err != nil {
		return nil, fmt.Errorf("list retirements: %w", err)
	}
	defer rows.Close()

	var out []*models.RetirementRecord
	for rows.Next() {
		r, err := scanRetirement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan retirement: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLedgerRow(row scanner) (*models.ProjectLedger, error) {
	var (
		l                      models.ProjectLedger
		addr                   string
		batch, supply, retired int64
		next                   int64
	)
	if err := row.Scan(&addr, &batch, &l.Name, &l.Symbol, &supply, &retired, &next, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	parsed, err := domain.ParseAddress(addr)
	if err != nil {
		return nil, err
	}
	l.Address = parsed
	l.BatchID = domain.BatchID(batch)
	l.TotalSupply = uint64(supply)
	l.TotalRetired = uint64(retired)
	l.NextRetirementID = domain.RetirementID(next)
	return &l, nil
}

func scanRetirement(row scanner) (*models.RetirementRecord, error) {
	var (
		r              models.RetirementRecord
		ledger, holder string
		id, amount     int64
	)
	if err := row.Scan(&ledger, &id, &holder, &amount, &r.Reason, &r.RetiredAt); err != nil {
		return nil, err
	}
	var err error
	if r.Ledger, err = domain.ParseAddress(ledger); err != nil {
		return nil, err
	}
	if r.Holder, err = domain.ParseAddress(holder); err != nil {
		return nil, err
	}
	r.ID = domain.RetirementID(id)
	r.Amount = uint64(amount)
	return &r, nil
}

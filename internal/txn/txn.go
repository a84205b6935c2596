// Package txn serializes every mutating operation through a single global
// transaction. One transaction runs at a time; nested RunInTx calls join the
// transaction already in the context.
package txn

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "carbonmint/pkg/domain-errors"
	txcontext "carbonmint/pkg/platform/tx"
)

// Runner executes fn atomically. View runs a read that must only observe
// committed state.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	View(ctx context.Context, fn func(ctx context.Context) error) error
}

// errWriteInView is returned when a mutation is attempted inside a read view;
// the view already holds the lock a transaction would need.
var errWriteInView = dErrors.New(dErrors.CodeInternal, "cannot start a transaction inside a read view")

// MemoryRunner serializes transactions with a process-wide mutex and undoes
// in-memory mutations through the journal when fn fails.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemory() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txcontext.InTx(ctx) {
		return fn(ctx)
	}
	if txcontext.InReadScope(ctx) {
		return errWriteInView
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	journal := &txcontext.Journal{}
	defer func() {
		if p := recover(); p != nil {
			journal.Rollback()
			panic(p)
		}
		if err != nil {
			journal.Rollback()
			return
		}
		journal.Discard()
	}()
	return fn(txcontext.WithJournal(ctx, journal))
}

// View holds the transaction mutex so a read never observes a half-applied
// transaction. Views nested in a view or a transaction join the outer scope.
func (r *MemoryRunner) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if txcontext.InTx(ctx) || txcontext.InReadScope(ctx) {
		return fn(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(txcontext.WithReadScope(ctx))
}

const (
	defaultTxTimeout = 5 * time.Second
	// globalLockKey is the advisory lock every mutating transaction takes,
	// giving the database the same single-writer order as the memory runner.
	globalLockKey int64 = 0x63626e6d
)

// PostgresRunner opens a SQL transaction, takes the global advisory lock, and
// carries the *sql.Tx to stores through the context.
type PostgresRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *PostgresRunner {
	return &PostgresRunner{db: db, timeout: defaultTxTimeout}
}

// View runs fn directly; READ COMMITTED already hides uncommitted writes. The
// read scope is still marked so both runners reject writes inside a view.
func (r *PostgresRunner) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if txcontext.InTx(ctx) || txcontext.InReadScope(ctx) {
		return fn(ctx)
	}
	return fn(txcontext.WithReadScope(ctx))
}

func (r *PostgresRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txcontext.InTx(ctx) {
		return fn(ctx)
	}
	if txcontext.InReadScope(ctx) {
		return errWriteInView
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, globalLockKey); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "acquire global transaction lock")
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}

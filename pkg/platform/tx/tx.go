// Package tx carries transaction state through context.
//
// Postgres stores pick up the *sql.Tx placed by the runner. In-memory stores
// record an inverse for each mutation on the Journal so the runner can undo a
// failed transaction.
package tx

import (
	"context"
	"database/sql"
	"sync"
)

type (
	sqlTxKey   struct{}
	journalKey struct{}
	readKey    struct{}
)

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, sqlTxKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx)
	return tx, ok
}

// Journal collects undo functions for in-memory mutations.
type Journal struct {
	mu    sync.Mutex
	undos []func()
}

// WithJournal attaches j to ctx.
func WithJournal(ctx context.Context, j *Journal) context.Context {
	if j == nil {
		return ctx
	}
	return context.WithValue(ctx, journalKey{}, j)
}

// JournalFrom returns the journal in ctx, if any.
func JournalFrom(ctx context.Context) (*Journal, bool) {
	j, ok := ctx.Value(journalKey{}).(*Journal)
	return j, ok
}

// InTx reports whether ctx belongs to an open transaction of either kind.
func InTx(ctx context.Context) bool {
	if _, ok := From(ctx); ok {
		return true
	}
	_, ok := JournalFrom(ctx)
	return ok
}

// WithReadScope marks ctx as running inside a read view.
func WithReadScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, readKey{}, struct{}{})
}

// InReadScope reports whether ctx belongs to an open read view.
func InReadScope(ctx context.Context) bool {
	return ctx.Value(readKey{}) != nil
}

// OnRollback registers undo on the journal in ctx. Outside a transaction the
// mutation is already final and undo is dropped.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := JournalFrom(ctx); ok {
		j.Add(undo)
	}
}

// Add appends an undo function.
func (j *Journal) Add(undo func()) {
	j.mu.Lock()
	j.undos = append(j.undos, undo)
	j.mu.Unlock()
}

// Rollback runs undo functions in reverse registration order and clears them.
func (j *Journal) Rollback() {
	j.mu.Lock()
	undos := j.undos
	j.undos = nil
	j.mu.Unlock()
	for i := len(undos) - 1; i >= 0; i-- {
		undos[i]()
	}
}

// Discard forgets all undo functions after a successful commit.
func (j *Journal) Discard() {
	j.mu.Lock()
	j.undos = nil
	j.mu.Unlock()
}

// Len returns the number of pending undo functions.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.undos)
}

package txn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "carbonmint/pkg/domain-errors"
	txcontext "carbonmint/pkg/platform/tx"
)

func TestMemoryRunnerRollsBackOnError(t *testing.T) {
	r := NewMemory()
	state := map[string]int{"supply": 10}

	err := r.RunInTx(context.Background(), func(ctx context.Context) error {
		prev := state["supply"]
		state["supply"] = 25
		txcontext.OnRollback(ctx, func() { state["supply"] = prev })
		return errors.New("batch counter update failed")
	})

	require.Error(t, err)
	assert.Equal(t, 10, state["supply"])
}

func TestMemoryRunnerCommitsOnSuccess(t *testing.T) {
	r := NewMemory()
	state := 0

	require.NoError(t, r.RunInTx(context.Background(), func(ctx context.Context) error {
		state = 5
		txcontext.OnRollback(ctx, func() { state = 0 })
		return nil
	}))
	assert.Equal(t, 5, state)
}

func TestMemoryRunnerNestedCallsJoinOuterTransaction(t *testing.T) {
	r := NewMemory()
	state := 0

	err := r.RunInTx(context.Background(), func(ctx context.Context) error {
		innerErr := r.RunInTx(ctx, func(ctx context.Context) error {
			state = 1
			txcontext.OnRollback(ctx, func() { state = 0 })
			return nil
		})
		require.NoError(t, innerErr)
		return errors.New("outer fails after inner succeeded")
	})

	require.Error(t, err)
	assert.Zero(t, state, "inner write must be undone with the outer transaction")
}

func TestMemoryRunnerRollsBackOnPanic(t *testing.T) {
	r := NewMemory()
	state := 0

	assert.Panics(t, func() {
		_ = r.RunInTx(context.Background(), func(ctx context.Context) error {
			state = 9
			txcontext.OnRollback(ctx, func() { state = 0 })
			panic("boom")
		})
	})
	assert.Zero(t, state)

	// The lock must have been released.
	require.NoError(t, r.RunInTx(context.Background(), func(context.Context) error { return nil }))
}

func TestMemoryRunnerSerializesTransactions(t *testing.T) {
	r := NewMemory()
	counter := 0
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.RunInTx(context.Background(), func(context.Context) error {
				v := counter
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestMemoryRunnerRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemory().RunInTx(ctx, func(context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestMemoryRunnerViewInsideTransactionDoesNotDeadlock(t *testing.T) {
	r := NewMemory()
	err := r.RunInTx(context.Background(), func(ctx context.Context) error {
		return r.View(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
}

// returnsWithin fails the test if fn has not returned after d.
func returnsWithin(t *testing.T, d time.Duration, fn func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatal("runner call did not return: lock held twice")
		return nil
	}
}

func TestMemoryRunnerNestedViewsJoinOuterView(t *testing.T) {
	r := NewMemory()
	reads := 0

	err := returnsWithin(t, time.Second, func() error {
		return r.View(context.Background(), func(ctx context.Context) error {
			reads++
			return r.View(ctx, func(ctx context.Context) error {
				reads++
				return r.View(ctx, func(context.Context) error {
					reads++
					return nil
				})
			})
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 3, reads)

	// the lock is free again for writers
	require.NoError(t, returnsWithin(t, time.Second, func() error {
		return r.RunInTx(context.Background(), func(context.Context) error { return nil })
	}))
}

func TestMemoryRunnerRejectsTransactionInsideView(t *testing.T) {
	r := NewMemory()
	wrote := false

	err := returnsWithin(t, time.Second, func() error {
		return r.View(context.Background(), func(ctx context.Context) error {
			return r.RunInTx(ctx, func(context.Context) error {
				wrote = true
				return nil
			})
		})
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.False(t, wrote)
}

func TestPostgresRunnerRejectsTransactionInsideView(t *testing.T) {
	// the read-scope check runs before the database is touched
	r := NewPostgres(nil)
	err := r.View(context.Background(), func(ctx context.Context) error {
		return r.RunInTx(ctx, func(context.Context) error { return nil })
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

//go:build integration

package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonmint/internal/platform/postgres"
	"carbonmint/pkg/testutil/containers"
)

func TestPostgresRunner(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	t.Cleanup(func() {
		_ = pg.DB.Close()
		_ = pg.Container.Terminate(context.Background())
	})
	ctx := context.Background()
	runner := NewPostgres(pg.DB)

	t.Run("rollback returns ids to the pool", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		err := runner.RunInTx(ctx, func(ctx context.Context) error {
			id, err := postgres.NextID(ctx, pg.DB, "rollback")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), id)
			return errors.New("abort")
		})
		require.Error(t, err)

		require.NoError(t, runner.RunInTx(ctx, func(ctx context.Context) error {
			id, err := postgres.NextID(ctx, pg.DB, "rollback")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), id)
			return nil
		}))
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		err := runner.RunInTx(ctx, func(ctx context.Context) error {
			if _, err := postgres.NextID(ctx, pg.DB, "nested"); err != nil {
				return err
			}
			if err := runner.RunInTx(ctx, func(ctx context.Context) error {
				_, err := postgres.NextID(ctx, pg.DB, "nested")
				return err
			}); err != nil {
				return err
			}
			return errors.New("abort after inner commit point")
		})
		require.Error(t, err)

		var count int
		require.NoError(t, pg.DB.QueryRowContext(ctx, `SELECT count(*) FROM counters WHERE name = 'nested'`).Scan(&count))
		assert.Zero(t, count)
	})
}

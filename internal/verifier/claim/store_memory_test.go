package claim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonmint/pkg/domain"
)

func TestInMemoryClaim(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	s := NewInMemory()
	s.now = func() time.Time { return now }

	id := domain.RequestID{1}
	other := domain.RequestID{2}

	ok, err := s.Claim(ctx, id, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, id, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lease must not be granted twice")

	ok, err = s.Claim(ctx, other, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, err = s.Claim(ctx, id, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is reclaimable")

	require.NoError(t, s.Release(ctx, id))
	ok, err = s.Claim(ctx, id, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

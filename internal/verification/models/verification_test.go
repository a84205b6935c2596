package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Response
		wantErr bool
	}{
		{name: "well formed", raw: "GS-15234|10000|2025-01-15", want: Response{"GS-15234", 10000, "2025-01-15"}},
		{name: "zero available", raw: "GS-1|0|2025-01-15", want: Response{"GS-1", 0, "2025-01-15"}},
		{name: "empty timestamp", raw: "GS-1|5|", want: Response{"GS-1", 5, ""}},
		{name: "too few fields", raw: "GS-1|5", wantErr: true},
		{name: "too many fields", raw: "GS-1|5|x|y", wantErr: true},
		{name: "negative amount", raw: "GS-1|-5|x", wantErr: true},
		{name: "largest amount", raw: "GS-1|9223372036854775807|x", want: Response{"GS-1", domain.MaxAmount, "x"}},
		{name: "amount above signed range", raw: "GS-1|9223372036854775808|x", wantErr: true},
		{name: "amount above unsigned range", raw: "GS-1|18446744073709551616|x", wantErr: true},
		{name: "blank project", raw: " |5|x", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.raw, EncodeResponse(got))
		})
	}
}

func TestApply(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := domain.DeriveRequestID(domain.MustAddress("0x00000000000000000000000000000000000a0003"), 1, 1)
	pending := func(t *testing.T) *VerificationRequest {
		req, err := NewPending(id, 1, domain.Address{1}, now)
		require.NoError(t, err)
		return req
	}

	t.Run("success copies payload", func(t *testing.T) {
		req := pending(t)
		require.NoError(t, req.Apply(Fulfillment{Response: "GS-15234|10000|2025-01-15"}, now))
		assert.Equal(t, StatusVerified, req.Status)
		assert.True(t, req.Fulfilled)
		assert.Equal(t, uint64(10000), req.AvailableForSale)
		assert.Equal(t, now, *req.FulfilledAt)
	})

	t.Run("malformed success changes nothing", func(t *testing.T) {
		req := pending(t)
		err := req.Apply(Fulfillment{Response: "garbage"}, now)
		require.Error(t, err)
		assert.Equal(t, StatusPending, req.Status)
		assert.False(t, req.Fulfilled)
	})

	t.Run("failure keeps parsable fields and reason", func(t *testing.T) {
		req := pending(t)
		require.NoError(t, req.Apply(Fulfillment{Response: "GS-1|0|2025-01-15", Error: "no credits for sale"}, now))
		assert.Equal(t, StatusFailed, req.Status)
		assert.Equal(t, "GS-1", req.ExternalProjectID)
		assert.Equal(t, "no credits for sale", req.FailureReason)
	})

	t.Run("failure without payload", func(t *testing.T) {
		req := pending(t)
		require.NoError(t, req.Apply(Fulfillment{Error: "registry unavailable"}, now))
		assert.Equal(t, StatusFailed, req.Status)
		assert.Empty(t, req.ExternalProjectID)
	})

	t.Run("second callback is rejected", func(t *testing.T) {
		req := pending(t)
		require.NoError(t, req.Apply(Fulfillment{Error: "x"}, now))
		err := req.Apply(Fulfillment{Response: "GS-1|1|t"}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyFulfilled))
		assert.Equal(t, StatusFailed, req.Status)
	})
}

func TestStatus(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusVerified.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, Status("unknown").IsValid())
}

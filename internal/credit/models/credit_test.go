package models

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

func TestRegisterRequestValidate(t *testing.T) {
	t.Run("zero amount", func(t *testing.T) {
		req := RegisterRequest{Amount: 0, ProjectID: "GS-15234"}
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	t.Run("blank project", func(t *testing.T) {
		req := RegisterRequest{Amount: 10, ProjectID: "   "}
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("amount bounds", func(t *testing.T) {
		tests := []struct {
			name   string
			amount uint64
			ok     bool
		}{
			{"max amount", domain.MaxAmount, true},
			{"one above max", domain.MaxAmount + 1, false},
			{"uint64 max", math.MaxUint64, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := RegisterRequest{Amount: tt.amount, ProjectID: "GS-15234"}
				err := req.Validate()
				if tt.ok {
					assert.NoError(t, err)
					return
				}
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
			})
		}
	})

	t.Run("project length counts characters", func(t *testing.T) {
		req := RegisterRequest{Amount: 10, ProjectID: strings.Repeat("é", 128)}
		require.NoError(t, req.Validate())

		req = RegisterRequest{Amount: 10, ProjectID: strings.Repeat("é", 129)}
		assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))
	})

	t.Run("project must be utf8", func(t *testing.T) {
		req := RegisterRequest{Amount: 10, ProjectID: "GS-\xff"}
		assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))
	})

	t.Run("trims project", func(t *testing.T) {
		req := RegisterRequest{Amount: 10, ProjectID: " GS-15234 "}
		require.NoError(t, req.Validate())
		assert.Equal(t, "GS-15234", req.ProjectID)
	})
}

func TestMarkVerifiedIsOneShot(t *testing.T) {
	c, err := NewCarbonCredit(1, domain.Address{}, RegisterRequest{Amount: 10, ProjectID: "GS-1"}, time.Now())
	require.NoError(t, err)
	assert.False(t, c.IsVerified)

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.MarkVerified(first)
	c.MarkVerified(first.Add(time.Hour))

	assert.True(t, c.IsVerified)
	require.NotNil(t, c.VerifiedAt)
	assert.Equal(t, first, *c.VerifiedAt)
}

func TestNewCarbonCreditRejectsUnallocatedID(t *testing.T) {
	_, err := NewCarbonCredit(0, domain.Address{}, RegisterRequest{Amount: 10, ProjectID: "GS-1"}, time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

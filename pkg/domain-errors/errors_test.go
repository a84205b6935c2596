package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeDuplicateProject, "project already has an active batch")
		assert.True(t, HasCode(err, CodeDuplicateProject))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("mint batch: %w", New(CodeExceedsVerifiedAmount, "too many"))
		assert.True(t, HasCode(err, CodeExceedsVerifiedAmount))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load batch")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCategory(t *testing.T) {
	cases := map[Code]Category{
		CodeInvalidAmount:             CategoryValidation,
		CodeEmptyReason:               CategoryValidation,
		CodeVerificationIncomplete:    CategoryLifecycle,
		CodeAlreadyFulfilled:          CategoryLifecycle,
		CodeRetirementExceedsIssuance: CategoryCapacity,
		CodeInsufficientBalance:       CategoryCapacity,
		CodeUnauthorized:              CategoryAuthorization,
		CodeUnknownRequest:            CategoryNotFound,
		Code("made_up"):               CategoryInternal,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.Category(), string(code))
	}
}

package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "carbonmint/pkg/domain-errors"
)

func TestParseAddress(t *testing.T) {
	t.Run("normalizes case", func(t *testing.T) {
		a, err := ParseAddress("0xAbCdEf0000000000000000000000000000000001")
		require.NoError(t, err)
		assert.Equal(t, "0xabcdef0000000000000000000000000000000001", a.String())
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, err := ParseAddress("abcdef0000000000000000000000000000000001")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseAddress("0x1234")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-hex", func(t *testing.T) {
		_, err := ParseAddress("0x" + strings.Repeat("zz", 20))
		require.Error(t, err)
	})

	t.Run("zero address parses", func(t *testing.T) {
		a, err := ParseAddress("0x" + strings.Repeat("0", 40))
		require.NoError(t, err)
		assert.True(t, a.IsZero())
	})
}

func TestParseSequentialIDs(t *testing.T) {
	id, err := ParseBatchID("42")
	require.NoError(t, err)
	assert.Equal(t, BatchID(42), id)

	for _, input := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := ParseCreditID(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseRequestID(t *testing.T) {
	derived := DeriveRequestID(MustAddress("0x00000000000000000000000000000000000000aa"), 1, 1)

	parsed, err := ParseRequestID(derived.String())
	require.NoError(t, err)
	assert.Equal(t, derived, parsed)

	_, err = ParseRequestID("0x" + strings.Repeat("0", 64))
	require.Error(t, err, "zero request id is never issued")
}

func TestParseHash(t *testing.T) {
	h, err := ParseHash("")
	require.NoError(t, err)
	assert.True(t, h.IsZero())

	h, err = ParseHash("0x" + strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.False(t, h.IsZero())
}

func TestKeccak256KnownVector(t *testing.T) {
	// keccak256("") is a well-known constant.
	sum := Keccak256()
	var h Hash
	copy(h[:], sum)
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", h.String())
}

func TestDerivedIdentifiers(t *testing.T) {
	gateway := MustAddress("0x00000000000000000000000000000000000000aa")
	factory := MustAddress("0x00000000000000000000000000000000000000bb")

	t.Run("request ids are reproducible and distinct per sequence", func(t *testing.T) {
		assert.Equal(t, DeriveRequestID(gateway, 1, 1), DeriveRequestID(gateway, 1, 1))
		assert.NotEqual(t, DeriveRequestID(gateway, 1, 1), DeriveRequestID(gateway, 1, 2))
		assert.NotEqual(t, DeriveRequestID(gateway, 1, 1), DeriveRequestID(gateway, 2, 1))
	})

	t.Run("ledger addresses are reproducible and distinct per batch", func(t *testing.T) {
		a1 := DeriveLedgerAddress(factory, 1)
		assert.Equal(t, a1, DeriveLedgerAddress(factory, 1))
		assert.NotEqual(t, a1, DeriveLedgerAddress(factory, 2))
		assert.False(t, a1.IsZero())
	})
}

func TestAddressTextRoundTrip(t *testing.T) {
	a := MustAddress("0x00000000000000000000000000000000000000cc")
	text, err := a.MarshalText()
	require.NoError(t, err)

	var b Address
	require.NoError(t, b.UnmarshalText(text))
	assert.Equal(t, a, b)
}

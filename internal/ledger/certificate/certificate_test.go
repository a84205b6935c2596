package certificate

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	out, err := Render(Data{
		Number:        "RET-1-1",
		LedgerName:    "Carbon Credit Batch #1",
		LedgerSymbol:  "CCB1",
		LedgerAddress: "0x00000000000000000000000000000000000000c1",
		ProjectID:     "GS-15234",
		Holder:        "0x00000000000000000000000000000000000000a1",
		Amount:        1000,
		Reason:        "2025 corporate flights",
		RetiredAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

package models

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestBatch(t *testing.T, total uint64) *Batch {
	t.Helper()
	b, err := NewBatch(1, MintBatchRequest{
		Recipient:      domain.Address{0xa1},
		ProjectID:      "GS-15234",
		TotalCredits:   total,
		SourceCreditID: 1,
	}, Snapshot{ExternalProjectID: "GS-15234", AvailableForSale: 10000, ExternalTimestamp: "2025-01-15", Status: "verified"}, testNow)
	require.NoError(t, err)
	return b
}

func TestMintBatchRequestValidate(t *testing.T) {
	valid := MintBatchRequest{Recipient: domain.Address{1}, ProjectID: "GS-1", TotalCredits: 1, SourceCreditID: 1}
	tests := []struct {
		name   string
		mutate func(*MintBatchRequest)
		code   dErrors.Code
	}{
		{"zero total", func(r *MintBatchRequest) { r.TotalCredits = 0 }, dErrors.CodeInvalidAmount},
		{"total above max", func(r *MintBatchRequest) { r.TotalCredits = domain.MaxAmount + 1 }, dErrors.CodeInvalidAmount},
		{"total at uint64 max", func(r *MintBatchRequest) { r.TotalCredits = math.MaxUint64 }, dErrors.CodeInvalidAmount},
		{"blank project", func(r *MintBatchRequest) { r.ProjectID = "  " }, dErrors.CodeValidation},
		{"zero recipient", func(r *MintBatchRequest) { r.Recipient = domain.Address{} }, dErrors.CodeValidation},
		{"zero credit", func(r *MintBatchRequest) { r.SourceCreditID = 0 }, dErrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			assert.True(t, dErrors.HasCode(req.Validate(), tt.code))
		})
	}
	req := valid
	assert.NoError(t, req.Validate())
	req.TotalCredits = domain.MaxAmount
	assert.NoError(t, req.Validate())
}

func TestNewBatchRejectsTotalAboveSnapshot(t *testing.T) {
	_, err := NewBatch(1, MintBatchRequest{TotalCredits: 10001}, Snapshot{AvailableForSale: 10000}, testNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestCounters(t *testing.T) {
	b := newTestBatch(t, 5000)

	require.NoError(t, b.RecordIssuance(3000, testNow))
	assert.Equal(t, uint64(2000), b.Headroom())

	err := b.RecordIssuance(2001, testNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	assert.Equal(t, uint64(3000), b.IssuedCredits, "failed issuance leaves counters untouched")

	require.NoError(t, b.RecordIssuance(2000, testNow))
	assert.Equal(t, uint64(0), b.Headroom())

	require.NoError(t, b.RecordRetirement(5000, testNow))
	err = b.RecordRetirement(1, testNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRetirementExceedsIssuance))
}

func TestDeactivateIsIdempotent(t *testing.T) {
	b := newTestBatch(t, 10)
	assert.True(t, b.Deactivate(testNow))
	assert.False(t, b.Deactivate(testNow.Add(time.Hour)))
	assert.Equal(t, testNow, b.UpdatedAt)
}

func TestDocument(t *testing.T) {
	b := newTestBatch(t, 5000)
	require.NoError(t, b.RecordIssuance(3000, testNow))
	require.NoError(t, b.RecordRetirement(1000, testNow))

	doc := b.Document("")
	assert.Equal(t, "Carbon Credit Batch #1", doc.Name)

	traits := map[string]any{}
	for _, a := range doc.Attributes {
		traits[a.TraitType] = a.Value
	}
	assert.Equal(t, "GS-15234", traits["GS Project ID"])
	assert.Equal(t, uint64(10000), traits["Available Credits"])
	assert.Equal(t, "2025-01-15", traits["Last Updated"])
	assert.Equal(t, "Verified", traits["Verification Status"])
	assert.Equal(t, uint64(3000), traits["Issued Credits"])
	assert.Equal(t, uint64(1000), traits["Retired Credits"])
	assert.Equal(t, "true", traits["Active"])

	uri, err := doc.TokenURI()
	require.NoError(t, err)
	encoded, ok := strings.CutPrefix(uri, "data:application/json;base64,")
	require.True(t, ok)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	var decoded Document
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, doc.Name, decoded.Name)
	assert.Len(t, decoded.Attributes, 9)
}

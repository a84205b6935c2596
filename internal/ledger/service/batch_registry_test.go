package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	batchmodels "carbonmint/internal/batch/models"
	batchservice "carbonmint/internal/batch/service"
	batchstore "carbonmint/internal/batch/store"
	"carbonmint/internal/ledger/models"
	"carbonmint/internal/ledger/store"
	"carbonmint/internal/txn"
	"carbonmint/pkg/domain"
	dErrors "carbonmint/pkg/domain-errors"
	"carbonmint/pkg/requestcontext"
)

// within fails the test if fn has not returned after d. Reads nested in a
// read view used to block forever on the memory runner.
func within(t *testing.T, d time.Duration, fn func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatalf("call did not return within %s", d)
		return nil
	}
}

// TestLedgerOverBatchService runs the ledger against the real batch registry
// sharing one memory runner, the way the application wires them.
func TestLedgerOverBatchService(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	issuer := domain.MustAddress("0x00000000000000000000000000000000000000e1")
	owner := domain.MustAddress("0x00000000000000000000000000000000000000a1")
	buyer := domain.MustAddress("0x00000000000000000000000000000000000000b1")
	ledgerAddr := domain.MustAddress("0x00000000000000000000000000000000000000c1")
	admin := domain.MustAddress("0x00000000000000000000000000000000000000d1")

	runner := txn.NewMemory()

	batchRecords := batchstore.NewInMemory()
	batch, err := batchmodels.NewBatch(1, batchmodels.MintBatchRequest{
		Recipient:      owner,
		ProjectID:      "GS-15234",
		TotalCredits:   5000,
		SourceCreditID: 1,
	}, batchmodels.Snapshot{ExternalProjectID: "GS-15234", AvailableForSale: 10000, Status: "verified"}, now)
	require.NoError(t, err)
	require.NoError(t, batchRecords.Create(ctx, batch))

	// Credit, verification and factory readers only serve MintBatch.
	batches := batchservice.New(batchRecords, batchstore.NewInMemoryIssuers(), nil, nil, nil, runner, admin)
	require.NoError(t, batches.SeedIssuers(ctx, []domain.Address{issuer}))

	ledgers := store.NewInMemory()
	l, err := models.NewProjectLedger(ledgerAddr, 1, now)
	require.NoError(t, err)
	require.NoError(t, ledgers.Create(ctx, l))
	svc := New(ledgers, batches, runner)

	mint := func(amount uint64) error {
		return within(t, 2*time.Second, func() error {
			_, err := svc.Mint(ctx, models.MintRequest{Ledger: ledgerAddr, To: buyer, Amount: amount, Issuer: issuer})
			return err
		})
	}
	state := func() (supply, balance, issued, retired uint64) {
		t.Helper()
		got, err := svc.Get(ctx, ledgerAddr)
		require.NoError(t, err)
		balance, err = svc.BalanceOf(ctx, ledgerAddr, buyer)
		require.NoError(t, err)
		b, err := batches.GetMetadata(ctx, 1)
		require.NoError(t, err)
		return got.TotalSupply, balance, b.IssuedCredits, b.RetiredCredits
	}

	require.NoError(t, mint(3000))

	assert.True(t, dErrors.HasCode(mint(2001), dErrors.CodeInsufficientHeadroom))
	supply, balance, issued, _ := state()
	assert.Equal(t, uint64(3000), supply)
	assert.Equal(t, uint64(3000), balance)
	assert.Equal(t, uint64(3000), issued)

	require.NoError(t, mint(2000))
	assert.True(t, dErrors.HasCode(mint(1), dErrors.CodeInsufficientHeadroom))
	supply, balance, issued, _ = state()
	assert.Equal(t, uint64(5000), supply)
	assert.Equal(t, uint64(5000), balance)
	assert.Equal(t, uint64(5000), issued)

	err = within(t, 2*time.Second, func() error {
		_, err := svc.Retire(ctx, models.RetireRequest{Ledger: ledgerAddr, Amount: 5001, Reason: "too much", Holder: buyer})
		return err
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientBalance))

	err = within(t, 2*time.Second, func() error {
		_, err := svc.Retire(ctx, models.RetireRequest{Ledger: ledgerAddr, Amount: 1200, Reason: "2025 flights", Holder: buyer})
		return err
	})
	require.NoError(t, err)
	supply, balance, issued, retired := state()
	assert.Equal(t, uint64(3800), supply)
	assert.Equal(t, uint64(3800), balance)
	assert.Equal(t, uint64(5000), issued)
	assert.Equal(t, uint64(1200), retired)

	var number string
	var pdf []byte
	err = within(t, 2*time.Second, func() error {
		var err error
		number, pdf, err = svc.Certificate(ctx, ledgerAddr, 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "RET-1-1", number)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

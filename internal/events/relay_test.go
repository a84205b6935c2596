package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"carbonmint/internal/events"
	"carbonmint/internal/events/metrics"
	"carbonmint/internal/events/store"
	"carbonmint/internal/txn"
)

type RelaySuite struct {
	suite.Suite
	ctx      context.Context
	outbox   *store.InMemoryOutbox
	recorder *events.Recorder
	bus      *events.Bus
	relay    *events.Relay
	tx       *txn.MemoryRunner
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctx = context.Background()
	s.outbox = store.NewInMemory()
	s.recorder = events.NewRecorder(s.outbox)
	s.bus = events.NewBus(nil)
	s.tx = txn.NewMemory()
	s.relay = events.NewRelay(s.outbox, s.bus,
		events.WithBatchSize(2),
		events.WithRelayMetrics(metrics.NewWithRegistry(prometheus.NewRegistry())),
	)
}

func (s *RelaySuite) record(t events.Type, aggregate string) {
	s.Require().NoError(s.tx.RunInTx(s.ctx, func(ctx context.Context) error {
		return s.recorder.Record(ctx, t, aggregate, map[string]string{"id": aggregate})
	}))
}

func (s *RelaySuite) TestFlushDeliversInOrderAndMarksPublished() {
	var seen []string
	s.bus.Subscribe(events.CreditRegistered, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		seen = append(seen, e.AggregateID)
		return nil
	}))

	s.record(events.CreditRegistered, "1")
	s.record(events.CreditRegistered, "2")
	s.record(events.CreditRegistered, "3")

	n, err := s.relay.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Equal([]string{"1", "2", "3"}, seen)

	pending, err := s.outbox.ListUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)

	n, err = s.relay.Flush(s.ctx)
	s.Require().NoError(err)
	s.Zero(n, "published entries are not redelivered")
}

func (s *RelaySuite) TestHandlerFailureLeavesEntriesPending() {
	s.bus.Subscribe(events.BatchMinted, events.HandlerFunc(func(context.Context, events.Event) error {
		return errors.New("downstream unavailable")
	}))
	s.record(events.BatchMinted, "7")

	_, err := s.relay.Flush(s.ctx)
	s.Require().Error(err)

	pending, err := s.outbox.ListUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(pending, 1)
}

func (s *RelaySuite) TestRolledBackTransactionLeavesNoEvent() {
	err := s.tx.RunInTx(s.ctx, func(ctx context.Context) error {
		if err := s.recorder.Record(ctx, events.LedgerMinted, "0xabc", struct{}{}); err != nil {
			return err
		}
		return errors.New("capacity exceeded")
	})
	s.Require().Error(err)
	s.Empty(s.outbox.All())
}

func TestEventDecode(t *testing.T) {
	outbox := store.NewInMemory()
	rec := events.NewRecorder(outbox)
	require.NoError(t, rec.Record(context.Background(), events.BatchDeactivated, "5", events.BatchDeactivatedPayload{BatchID: 5}))

	all := outbox.All(events.BatchDeactivated)
	require.Len(t, all, 1)

	var payload events.BatchDeactivatedPayload
	require.NoError(t, all[0].Decode(&payload))
	assert.EqualValues(t, 5, payload.BatchID)
}

// Package app wires the five core components together over a chosen
// persistence backend. cmd/server and the end-to-end tests share it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	batchhandler "carbonmint/internal/batch/handler"
	batchmetrics "carbonmint/internal/batch/metrics"
	batchservice "carbonmint/internal/batch/service"
	batchstore "carbonmint/internal/batch/store"
	credithandler "carbonmint/internal/credit/handler"
	creditmetrics "carbonmint/internal/credit/metrics"
	creditservice "carbonmint/internal/credit/service"
	creditstore "carbonmint/internal/credit/store"
	"carbonmint/internal/events"
	eventstore "carbonmint/internal/events/store"
	factoryhandler "carbonmint/internal/factory/handler"
	factoryservice "carbonmint/internal/factory/service"
	ledgerhandler "carbonmint/internal/ledger/handler"
	ledgermetrics "carbonmint/internal/ledger/metrics"
	ledgerservice "carbonmint/internal/ledger/service"
	ledgerstore "carbonmint/internal/ledger/store"
	"carbonmint/internal/platform/config"
	httptransport "carbonmint/internal/transport/http"
	"carbonmint/internal/txn"
	verificationhandler "carbonmint/internal/verification/handler"
	verificationmetrics "carbonmint/internal/verification/metrics"
	verificationservice "carbonmint/internal/verification/service"
	verificationstore "carbonmint/internal/verification/store"
)

// LedgerStore backs both the factory registry and the ledgers themselves.
type LedgerStore interface {
	factoryservice.Store
	ledgerservice.Store
}

// Stores is one persistence backend plus its transaction runner.
type Stores struct {
	Tx            txn.Runner
	Outbox        events.Store
	Credits       creditservice.Store
	Verifications verificationservice.Store
	Batches       batchservice.Store
	Issuers       batchservice.IssuerStore
	Ledgers       LedgerStore
}

// MemoryStores keeps all state in process.
func MemoryStores() Stores {
	return Stores{
		Tx:            txn.NewMemory(),
		Outbox:        eventstore.NewInMemory(),
		Credits:       creditstore.NewInMemory(),
		Verifications: verificationstore.NewInMemory(),
		Batches:       batchstore.NewInMemory(),
		Issuers:       batchstore.NewInMemoryIssuers(),
		Ledgers:       ledgerstore.NewInMemory(),
	}
}

// PostgresStores persists to db. The schema must already be migrated.
func PostgresStores(db *sql.DB) Stores {
	return Stores{
		Tx:            txn.NewPostgres(db),
		Outbox:        eventstore.NewPostgres(db),
		Credits:       creditstore.NewPostgres(db),
		Verifications: verificationstore.NewPostgres(db),
		Batches:       batchstore.NewPostgres(db),
		Issuers:       batchstore.NewPostgresIssuers(db),
		Ledgers:       ledgerstore.NewPostgres(db),
	}
}

type Options struct {
	Identities config.Identities
	Logger     *slog.Logger
	// Registerer receives the per-component metrics; nil skips them.
	Registerer    prometheus.Registerer
	DocumentImage string
}

// Components are the wired core services.
type Components struct {
	Stores        Stores
	Recorder      *events.Recorder
	Credits       *creditservice.Service
	Verifications *verificationservice.Service
	Batches       *batchservice.Service
	Factory       *factoryservice.Service
	Ledgers       *ledgerservice.Service
	logger        *slog.Logger
}

// New builds the component graph leaves first and seeds the configured
// issuers.
func New(ctx context.Context, stores Stores, opts Options) (*Components, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := events.NewRecorder(stores.Outbox)
	ids := opts.Identities

	creditOpts := []creditservice.Option{creditservice.WithLogger(logger), creditservice.WithEventRecorder(recorder)}
	verificationOpts := []verificationservice.Option{verificationservice.WithLogger(logger), verificationservice.WithEventRecorder(recorder)}
	batchOpts := []batchservice.Option{batchservice.WithLogger(logger), batchservice.WithEventRecorder(recorder)}
	ledgerOpts := []ledgerservice.Option{ledgerservice.WithLogger(logger), ledgerservice.WithEventRecorder(recorder)}
	if opts.DocumentImage != "" {
		batchOpts = append(batchOpts, batchservice.WithDocumentImage(opts.DocumentImage))
	}
	if reg := opts.Registerer; reg != nil {
		creditOpts = append(creditOpts, creditservice.WithMetrics(creditmetrics.NewWithRegistry(reg)))
		verificationOpts = append(verificationOpts, verificationservice.WithMetrics(verificationmetrics.NewWithRegistry(reg)))
		batchOpts = append(batchOpts, batchservice.WithMetrics(batchmetrics.NewWithRegistry(reg)))
		ledgerOpts = append(ledgerOpts, ledgerservice.WithMetrics(ledgermetrics.NewWithRegistry(reg)))
	}

	c := &Components{Stores: stores, Recorder: recorder, logger: logger}
	c.Credits = creditservice.New(stores.Credits, stores.Tx, creditOpts...)
	c.Verifications = verificationservice.New(stores.Verifications, c.Credits, stores.Tx,
		verificationservice.Identities{Gateway: ids.Gateway, Verifier: ids.Verifier},
		verificationOpts...,
	)
	c.Factory = factoryservice.New(stores.Ledgers, stores.Tx, ids.Factory,
		factoryservice.WithLogger(logger),
		factoryservice.WithEventRecorder(recorder),
	)
	c.Batches = batchservice.New(stores.Batches, stores.Issuers, c.Credits, c.Verifications, c.Factory, stores.Tx, ids.Admin, batchOpts...)
	c.Ledgers = ledgerservice.New(stores.Ledgers, c.Batches, stores.Tx, ledgerOpts...)

	if len(ids.Issuers) > 0 {
		if err := c.Batches.SeedIssuers(ctx, ids.Issuers); err != nil {
			return nil, fmt.Errorf("seed issuers: %w", err)
		}
	}
	return c, nil
}

// Handlers returns the HTTP handlers for every component.
func (c *Components) Handlers() []httptransport.Registrar {
	return []httptransport.Registrar{
		credithandler.New(c.Credits, c.logger),
		verificationhandler.New(c.Verifications, c.logger),
		batchhandler.New(c.Batches, c.logger),
		factoryhandler.New(c.Factory, c.logger),
		ledgerhandler.New(c.Ledgers, c.logger),
	}
}

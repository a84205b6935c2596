package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"carbonmint/internal/app"
	"carbonmint/internal/events"
	eventsmetrics "carbonmint/internal/events/metrics"
	jwttoken "carbonmint/internal/jwt_token"
	"carbonmint/internal/platform/config"
	"carbonmint/internal/platform/httpserver"
	"carbonmint/internal/platform/kafka"
	"carbonmint/internal/platform/kafka/consumer"
	"carbonmint/internal/platform/kafka/producer"
	"carbonmint/internal/platform/logger"
	"carbonmint/internal/platform/metrics"
	"carbonmint/internal/platform/postgres"
	"carbonmint/internal/platform/redis"
	httptransport "carbonmint/internal/transport/http"
	"carbonmint/internal/verifier"
	"carbonmint/internal/verifier/claim"
	verifiermetrics "carbonmint/internal/verifier/metrics"
	"carbonmint/internal/verifier/registry"
)

const shutdownTimeout = 10 * time.Second

// main loads configuration, wires the components over the selected backend
// and runs the HTTP server, outbox relay and verifier until a signal arrives.
func main() {
	if err := run(); err != nil {
		slog.Error("carbonmint exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthCheck{}
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	stores := app.MemoryStores()
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		checks["postgres"] = db.PingContext
		stores = app.PostgresStores(db)
		log.Info("using postgres persistence")
	} else {
		log.Warn("DATABASE_URL not set, state is kept in memory")
	}

	components, err := app.New(ctx, stores, app.Options{
		Identities: cfg.Identities,
		Logger:     log,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}

	bus := events.NewBus(log)
	var publisher events.Publisher = bus
	if cfg.Kafka.Enabled() {
		if err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers, kafka.TopicSpec{Name: cfg.Kafka.Topic, Partitions: 3}); err != nil {
			return err
		}
		prod, err := producer.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		closers = append(closers, prod.Close)
		checks["kafka"] = prod.Ping
		publisher = events.NewKafkaPublisher(prod, cfg.Kafka.Topic)
		log.Info("publishing events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	relay := events.NewRelay(stores.Outbox, publisher,
		events.WithRelayLogger(log),
		events.WithRelayMetrics(eventsmetrics.New()),
		events.WithPollInterval(cfg.Outbox.PollInterval),
		events.WithBatchSize(cfg.Outbox.BatchSize),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })

	if cfg.Verifier.Enabled {
		sweeper, err := startVerifier(gctx, g, cfg, components, bus, log, checks, &closers)
		if err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        metrics.New(),
		Tokens:         jwttoken.NewJWTServiceAdapter(tokens),
		Handlers:       components.Handlers(),
		Checks:         checks,
		MetricsHandler: metrics.Handler(),
	})
	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting carbonmint", "addr", cfg.Addr)
		return httpserver.Run(gctx, srv, shutdownTimeout)
	})

	return g.Wait()
}

// startVerifier runs the verifier adapter. With Kafka configured it consumes
// the event topic; otherwise it subscribes to the in-process bus.
func startVerifier(
	ctx context.Context,
	g *errgroup.Group,
	cfg config.Server,
	components *app.Components,
	bus *events.Bus,
	log *slog.Logger,
	checks map[string]httptransport.HealthCheck,
	closers *[]func(),
) (*verifier.Sweeper, error) {
	if cfg.Registry.BaseURL == "" {
		return nil, errors.New("VERIFIER_ENABLED requires REGISTRY_API_URL")
	}
	m := verifiermetrics.New()

	var claims verifier.ClaimStore = claim.NewInMemory()
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		*closers = append(*closers, func() { _ = rc.Close() })
		checks["redis"] = rc.Health
		claims = claim.NewRedis(rc.Client)
		log.Info("verifier claims stored in redis")
	}

	client := registry.New(cfg.Registry.BaseURL,
		registry.WithTimeout(cfg.Registry.Timeout),
		registry.WithLogger(log),
		registry.WithMetrics(m),
	)
	worker := verifier.NewWorker(components.Verifications, components.Credits, client, claims, cfg.Identities.Verifier,
		verifier.WithLogger(log),
		verifier.WithMetrics(m),
		verifier.WithClaimTTL(cfg.Verifier.ClaimTTL),
		verifier.WithLookupTimeout(cfg.Registry.Timeout),
	)

	if cfg.Kafka.Enabled() {
		cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, []string{cfg.Kafka.Topic}, log)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, cons.Close)
		local := events.NewBus(log)
		local.Subscribe(events.VerificationRequested, worker)
		g.Go(func() error { return cons.Run(ctx, events.NewConsumerHandler(local)) })
	} else {
		bus.Subscribe(events.VerificationRequested, worker)
	}

	sweeper := verifier.NewSweeper(components.Verifications, worker, cfg.Verifier.SweepSchedule, cfg.Verifier.GracePeriod,
		verifier.WithSweeperLogger(log),
		verifier.WithSweeperMetrics(m),
	)
	if err := sweeper.Start(ctx); err != nil {
		return nil, err
	}
	return sweeper, nil
}

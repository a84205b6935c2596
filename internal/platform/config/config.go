package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"carbonmint/pkg/domain"
	liststr "carbonmint/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	LogLevel string

	Auth       AuthConfig
	Identities Identities
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Registry   RegistryConfig
	Verifier   VerifierConfig
	Outbox     OutboxConfig
}

// AuthConfig controls bearer token validation.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration
}

// Identities holds the fixed role addresses the core trusts.
type Identities struct {
	Admin    domain.Address
	Verifier domain.Address
	Issuers  []domain.Address
	Gateway  domain.Address
	Factory  domain.Address
}

// DatabaseConfig selects PostgreSQL persistence. An empty URL keeps
// everything in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type RegistryConfig struct {
	BaseURL string
	Timeout time.Duration
}

type VerifierConfig struct {
	Enabled       bool
	SweepSchedule string
	GracePeriod   time.Duration
	ClaimTTL      time.Duration
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

const (
	defaultAdmin    = "0x00000000000000000000000000000000000a0001"
	defaultVerifier = "0x00000000000000000000000000000000000a0002"
	defaultGateway  = "0x00000000000000000000000000000000000a0003"
	defaultFactory  = "0x00000000000000000000000000000000000a0004"
)

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	ids, err := identitiesFromEnv()
	if err != nil {
		return Server{}, err
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; override in any shared environment.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:     getEnv("CARBONMINT_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Auth: AuthConfig{
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     getEnv("JWT_ISSUER", "carbonmint"),
			TokenTTL:      getDuration("JWT_TOKEN_TTL", time.Hour),
		},
		Identities: ids,
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       liststr.SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:         getEnv("KAFKA_TOPIC", "carbonmint.events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "carbonmint-verifier"),
		},
		Registry: RegistryConfig{
			BaseURL: strings.TrimRight(os.Getenv("REGISTRY_API_URL"), "/"),
			Timeout: getDuration("REGISTRY_API_TIMEOUT", 10*time.Second),
		},
		Verifier: VerifierConfig{
			Enabled:       getBool("VERIFIER_ENABLED", false),
			SweepSchedule: getEnv("VERIFIER_SWEEP_SCHEDULE", "@every 1m"),
			GracePeriod:   getDuration("VERIFIER_GRACE_PERIOD", 2*time.Minute),
			ClaimTTL:      getDuration("VERIFIER_CLAIM_TTL", 30*time.Second),
		},
		Outbox: OutboxConfig{
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 100),
		},
	}, nil
}

func identitiesFromEnv() (Identities, error) {
	var ids Identities
	var err error
	if ids.Admin, err = getAddress("ADMIN_ADDRESS", defaultAdmin); err != nil {
		return ids, err
	}
	if ids.Verifier, err = getAddress("VERIFIER_ADDRESS", defaultVerifier); err != nil {
		return ids, err
	}
	if ids.Gateway, err = getAddress("GATEWAY_ADDRESS", defaultGateway); err != nil {
		return ids, err
	}
	if ids.Factory, err = getAddress("FACTORY_ADDRESS", defaultFactory); err != nil {
		return ids, err
	}
	for _, raw := range liststr.SplitList(os.Getenv("ISSUER_ADDRESSES")) {
		addr, err := domain.ParseAddress(raw)
		if err != nil {
			return ids, fmt.Errorf("ISSUER_ADDRESSES: %w", err)
		}
		ids.Issuers = append(ids.Issuers, addr)
	}
	return ids, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getAddress(key, fallback string) (domain.Address, error) {
	addr, err := domain.ParseAddress(getEnv(key, fallback))
	if err != nil {
		return domain.Address{}, fmt.Errorf("%s: %w", key, err)
	}
	if addr.IsZero() {
		return domain.Address{}, fmt.Errorf("%s: zero address is not allowed", key)
	}
	return addr, nil
}

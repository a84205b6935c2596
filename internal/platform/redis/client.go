// Package redis connects the shared go-redis client used for verifier claims.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"carbonmint/internal/platform/config"
)

// Client is a connected go-redis client that can answer readiness checks.
type Client struct {
	*redis.Client
}

// New connects and pings Redis. It returns a nil client when no URL is
// configured so callers can fall back to in-process state.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health pings the server; it backs the /readyz check.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

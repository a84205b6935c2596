package claim

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"carbonmint/pkg/domain"
)

const claimKeyPrefix = "verifier:claim:"

// RedisStore shares claims between verifier instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Claim uses SET NX with expiry so a crashed holder's lease lapses on its own.
func (s *RedisStore) Claim(ctx context.Context, id domain.RequestID, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, claimKeyPrefix+id.String(), "1", ttl).Result()
}

func (s *RedisStore) Release(ctx context.Context, id domain.RequestID) error {
	return s.client.Del(ctx, claimKeyPrefix+id.String()).Err()
}

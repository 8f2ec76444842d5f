package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/production-schedule/internal/port"
)

const defaultIdempotencyTTL = 24 * time.Hour

// RedisAdapter keeps request idempotency keys in Redis.
type RedisAdapter struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ port.IdempotencyStore = (*RedisAdapter)(nil)

func NewRedisAdapter(client redis.UniversalClient, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

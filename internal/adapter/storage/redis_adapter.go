package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix  = "idempotency:"
	resultKeySuffix       = ":result"
	defaultIdempotencyTTL = 24 * time.Hour
)

// RedisAdapter keeps idempotency claims and replayable responses. Stock is never cached here.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key, idempotencyKeyPrefix+key+resultKeySuffix).Err()
}

func (r *RedisAdapter) StoreResult(ctx context.Context, key string, payload []byte) error {
	return r.client.Set(ctx, idempotencyKeyPrefix+key+resultKeySuffix, payload, r.ttl).Err()
}

func (r *RedisAdapter) GetResult(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.client.Get(ctx, idempotencyKeyPrefix+key+resultKeySuffix).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rl1809/stockcanon/internal/core/domain"
)

const (
	rateKeyPrefix     = "rate:"
	idempotencyKeyTTL = 24 * time.Hour
)

type RedisAdapter struct {
	client *redis.Client
	locker *redislock.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client, locker: redislock.New(client)}
}

func (r *RedisAdapter) GetRate(ctx context.Context, productID string) (*domain.ConversionRate, error) {
	raw, err := r.client.Get(ctx, rateKeyPrefix+productID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rate domain.ConversionRate
	if err := msgpack.Unmarshal(raw, &rate); err != nil {
		return nil, fmt.Errorf("decode cached rate: %w", err)
	}
	return &rate, nil
}

func (r *RedisAdapter) SetRate(ctx context.Context, productID string, rate domain.ConversionRate, ttl time.Duration) error {
	raw, err := msgpack.Marshal(rate)
	if err != nil {
		return fmt.Errorf("encode rate: %w", err)
	}
	return r.client.Set(ctx, rateKeyPrefix+productID, raw, ttl).Err()
}

func (r *RedisAdapter) InvalidateRate(ctx context.Context, productID string) error {
	return r.client.Del(ctx, rateKeyPrefix+productID).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// TryLock returns a nil release func when another holder owns key.
func (r *RedisAdapter) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := r.locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

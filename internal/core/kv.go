// AngelaMos | 2026
// kv.go

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the transient key-value store the registration flow and the product
// cache are built on. Implementations must treat ttl == 0 as "no expiry".
//
// Delete returns the number of keys actually removed; callers that need
// single-use semantics (the OTP verify path) rely on that count.
// DeleteByPrefix is an optional capability: backends that cannot enumerate
// keys return ErrScanUnsupported and callers degrade explicitly.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

var ErrScanUnsupported = errors.New("key scan not supported")

const scanBatchSize = 100

type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get %q: %w", key, ErrCacheMiss)
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return val, nil
}

func (r *RedisKV) Set(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(
	ctx context.Context,
	keys ...string,
) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete keys: %w", err)
	}
	return removed, nil
}

func (r *RedisKV) DeleteByPrefix(
	ctx context.Context,
	prefix string,
) (int64, error) {
	var removed int64

	iter := r.client.Scan(ctx, 0, prefix+"*", scanBatchSize).Iterator()

	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			n, err := r.Delete(ctx, batch...)
			if err != nil {
				return removed, err
			}
			removed += n
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan %q: %w", prefix, err)
	}

	if len(batch) > 0 {
		n, err := r.Delete(ctx, batch...)
		if err != nil {
			return removed, err
		}
		removed += n
	}

	return removed, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	redis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var _ Backend = (*RedisBackend)(nil)

// RedisBackend is a backend that keeps its map in a Redis database.
//
// Values are stored as JSON text. The backend holds a background context
// for its commands; the single-writer model of the system makes per-call
// deadlines unnecessary.
type RedisBackend struct {
	id     string
	ctx    context.Context
	client *redis.Client
}

// NewRedisBackend connects to Redis with the given options and verifies
// the connection with a ping.
func NewRedisBackend(opts *redis.Options) (*RedisBackend, error) {
	ctx := context.Background()
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
	}

	return &RedisBackend{
		id:     uuid.NewString(),
		ctx:    ctx,
		client: client,
	}, nil
}

// ID returns the identity of the backing map.
func (b *RedisBackend) ID() string {
	return b.id
}

// Exists reports whether key is present.
func (b *RedisBackend) Exists(key string) (bool, error) {
	count, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
	}

	return count > 0, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (b *RedisBackend) Get(key string) (any, error) {
	raw, err := b.client.Get(b.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
	}

	return decodeValue([]byte(raw))
}

// Set stores value under key as JSON text, overwriting any existing value.
func (b *RedisBackend) Set(key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	if err := b.client.Set(b.ctx, key, string(encoded), 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
	}

	return nil
}

// Erase removes key if present. It returns false when the key did not exist.
func (b *RedisBackend) Erase(key string) (bool, error) {
	removed, err := b.client.Del(b.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
	}

	return removed > 0, nil
}

// Keys returns every key matching the glob pattern, sorted lexicographically.
//
// Redis KEYS speaks a superset of the "*"/"?" dialect, so the server-side
// match is re-checked in Go to keep the dialect exact.
func (b *RedisBackend) Keys(pattern string) ([]string, error) {
	candidates, err := b.client.Keys(b.ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
	}

	matched := candidates[:0]

	for _, key := range candidates {
		if MatchGlob(pattern, key) {
			matched = append(matched, key)
		}
	}

	sort.Strings(matched)

	return matched, nil
}

// Clean removes every key the backend can see.
func (b *RedisBackend) Clean() error {
	keys, err := b.client.Keys(b.ctx, "*").Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := b.client.Del(b.ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
	}

	return nil
}

// BytesUsed returns the approximate footprint of the stored entries.
// Deep accounting charges each value its JSON text length.
func (b *RedisBackend) BytesUsed(deep bool) (uint64, error) {
	keys, err := b.client.Keys(b.ctx, "*").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
	}

	total := uint64(containerOverhead)

	for _, key := range keys {
		total += StringSize(key)

		if !deep {
			continue
		}

		length, err := b.client.StrLen(b.ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrRedisCommandFailed, err)
		}

		total += uint64(length)
	}

	return total, nil
}

// Close releases the client connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

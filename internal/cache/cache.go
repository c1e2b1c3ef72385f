// Package cache is the look-aside layer in front of the record store.
// Entries carry no TTL: they live until an invalidation or the next
// overwrite. Every operation is best-effort; callers treat a returned
// error as a miss or a soft warning, never as a reason to abort.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Get returns the cached bytes for key. ok is false on a miss; err is
// set only on an adapter failure (which callers handle as a miss).
func (c *Cache) Get(ctx context.Context, key string) (val []byte, ok bool, err error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set stores val under key with no expiry. Concurrent populates of the
// same key are last-writer-wins; for a given store state the values are
// equal, so the race is benign.
func (c *Cache) Set(ctx context.Context, key string, val []byte) error {
	return c.rdb.Set(ctx, key, val, 0).Err()
}

// Delete removes the given keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// SetNX sets key only if absent and reports whether it did. The audit
// consumer uses this for event dedup.
func (c *Cache) SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, val, ttl).Result()
}

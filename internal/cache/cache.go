// Package cache wraps the Redis client behind the small read-through
// surface the core needs: get, set-with-ttl and delete-by-prefix.  A
// nil Redis client degrades every operation into a miss/no-op so the
// service keeps working without the cache, matching how the rest of
// the stack treats Redis as optional.
package cache

import (
    "context"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent (or the cache is
// disabled).  Callers treat it as "compute and store", never as a
// failure.
var ErrMiss = errors.New("cache miss")

// Cache is a thin namespace over a Redis client.
type Cache struct {
    rdb *redis.Client
}

// New returns a Cache over the given client.  A nil client is allowed
// and disables the cache.
func New(rdb *redis.Client) *Cache {
    return &Cache{rdb: rdb}
}

// Get fetches the raw bytes stored under key.  Returns ErrMiss when the
// key does not exist or Redis is unavailable.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
    if c == nil || c.rdb == nil {
        return nil, ErrMiss
    }
    b, err := c.rdb.Get(ctx, key).Bytes()
    if err != nil {
        if errors.Is(err, redis.Nil) {
            return nil, ErrMiss
        }
        return nil, err
    }
    return b, nil
}

// SetWithTTL stores value under key for the given lifetime.
func (c *Cache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    if c == nil || c.rdb == nil {
        return nil
    }
    return c.rdb.Set(ctx, key, value, ttl).Err()
}

// DeleteByPrefix removes every key under the prefix using an
// incremental SCAN so large keyspaces are never blocked by a KEYS
// call.  Used to invalidate cached search results when a booking is
// created or cancelled.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) error {
    if c == nil || c.rdb == nil {
        return nil
    }
    iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
    var keys []string
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
        if len(keys) >= 100 {
            if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
                return err
            }
            keys = keys[:0]
        }
    }
    if err := iter.Err(); err != nil {
        return err
    }
    if len(keys) > 0 {
        return c.rdb.Del(ctx, keys...).Err()
    }
    return nil
}

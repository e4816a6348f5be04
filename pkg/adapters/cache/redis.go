// Package cache provides read-through cache adapters for search and stats
// responses. A cache failure is treated as a miss: the caller falls back to
// the store, and stale entries age out within the TTL.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aurora-borealis222/url-shortener/pkg/ports"
)

// RedisCache backs the cache port with a shared Redis instance.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(addr string, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return raw, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache delete failed", "keys", keys, "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ ports.Cache = (*RedisCache)(nil)

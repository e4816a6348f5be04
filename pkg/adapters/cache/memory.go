package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aurora-borealis222/url-shortener/pkg/ports"
)

// MemoryCache is an in-process cache for single-node deployments and tests.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	val, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	raw, ok := val.([]byte)
	return raw, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		c.store.Delete(key)
	}
}

var _ ports.Cache = (*MemoryCache)(nil)

// Package contentcache memoizes expensive enrichment results keyed by a digest
// of the raw input bytes.
package contentcache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Tier is an optional second level consulted on a local miss. Values found
// there are promoted into the local map.
type Tier interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Hooks receive cache events, typically to feed metrics.
type Hooks struct {
	OnHit       func()
	OnMiss      func()
	OnTierHit   func()
	OnTierError func(err error)
}

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) (string, error)

// Cache maps content digests to computed descriptions for the lifetime of the
// process. Entries are never evicted. Concurrent callers asking for the same
// missing key share one computation.
type Cache struct {
	mu    sync.RWMutex
	items map[string]string
	sf    singleflight.Group
	tier  Tier
	hooks Hooks
}

type Option func(*Cache)

func WithTier(t Tier) Option {
	return func(c *Cache) { c.tier = t }
}

func WithHooks(h Hooks) Option {
	return func(c *Cache) { c.hooks = h }
}

func New(opts ...Option) *Cache {
	c := &Cache{items: make(map[string]string)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the cache key of a payload. MD5 collisions are accepted.
func Key(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached value for key, or runs compute and stores
// its result. A failed computation is returned to the caller and not stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (string, error) {
	if v, ok := c.lookup(key); ok {
		c.hit()
		return v, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// A previous flight may have finished between lookup and Do.
		if v, ok := c.lookup(key); ok {
			c.hit()
			return v, nil
		}
		if c.hooks.OnMiss != nil {
			c.hooks.OnMiss()
		}
		if v, ok := c.fromTier(ctx, key); ok {
			c.store(key, v)
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return "", err
		}
		c.store(key, v)
		c.toTier(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len reports the number of locally held entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *Cache) store(key, value string) {
	c.mu.Lock()
	c.items[key] = value
	c.mu.Unlock()
}

func (c *Cache) hit() {
	if c.hooks.OnHit != nil {
		c.hooks.OnHit()
	}
}

func (c *Cache) fromTier(ctx context.Context, key string) (string, bool) {
	if c.tier == nil {
		return "", false
	}
	v, ok, err := c.tier.Get(ctx, key)
	if err != nil {
		c.tierError(err)
		return "", false
	}
	if ok && c.hooks.OnTierHit != nil {
		c.hooks.OnTierHit()
	}
	return v, ok
}

func (c *Cache) toTier(ctx context.Context, key, value string) {
	if c.tier == nil {
		return
	}
	if err := c.tier.Set(ctx, key, value); err != nil {
		c.tierError(err)
	}
}

func (c *Cache) tierError(err error) {
	if c.hooks.OnTierError != nil {
		c.hooks.OnTierError(err)
	}
}

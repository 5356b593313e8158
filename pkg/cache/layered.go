package cache

import (
	"context"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: shared).
type LayeredCache struct {
	memCache *MemoryCache
	remote   Service
	l1TTL    time.Duration
}

// NewLayeredCache puts an in-process cache in front of remote.
func NewLayeredCache(remote Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     10 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		memCache: NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		remote:   remote,
		l1TTL:    cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) l1Expiration(expiration time.Duration) time.Duration {
	if expiration <= 0 || expiration > lc.l1TTL {
		return lc.l1TTL
	}
	return expiration
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := encode(value)
	if err != nil {
		return err
	}
	// Write-through: remote first, then memory
	if err := lc.remote.Set(ctx, key, b, expiration); err != nil {
		return err
	}
	_ = lc.memCache.Set(ctx, key, b, lc.l1Expiration(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var b []byte
	if err := lc.memCache.Get(ctx, key, &b); err == nil {
		return decode(b, dest)
	}
	if err := lc.remote.Get(ctx, key, &b); err != nil {
		return err
	}
	_ = lc.memCache.Set(ctx, key, b, lc.l1TTL)
	return decode(b, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

func (lc *LayeredCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	encoded := make(map[string]interface{}, len(values))
	for k, v := range values {
		b, err := encode(v)
		if err != nil {
			return err
		}
		encoded[k] = b
	}
	if err := lc.remote.MSet(ctx, encoded, expiration); err != nil {
		return err
	}
	_ = lc.memCache.MSet(ctx, encoded, lc.l1Expiration(expiration))
	return nil
}

// MGet serves what L1 holds and fetches the rest from remote.
func (lc *LayeredCache) MGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out, _ := lc.memCache.MGet(ctx, keys...)
	var missing []string
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	remote, err := lc.remote.MGet(ctx, missing...)
	if err != nil {
		return nil, err
	}
	refill := make(map[string]interface{}, len(remote))
	for k, b := range remote {
		out[k] = b
		refill[k] = b
	}
	_ = lc.memCache.MSet(ctx, refill, lc.l1TTL)
	return out, nil
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.remote.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.remote.Unlock(ctx, key)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	return lc.remote.Close()
}

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values are stored msgpack
// encoded so NaN fields survive a round trip.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error
	// MGet returns the encoded values of the keys that were found.
	MGet(ctx context.Context, keys ...string) (map[string][]byte, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// MGetTyped retrieves multiple keys and decodes them into a typed map.
// Entries that fail to decode are treated as misses.
func MGetTyped[T any](ctx context.Context, c Service, keys ...string) (map[string]T, error) {
	if len(keys) == 0 {
		return make(map[string]T), nil
	}

	raw, err := c.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	typed := make(map[string]T, len(raw))
	for key, b := range raw {
		var obj T
		if err := decode(b, &obj); err != nil {
			continue
		}
		typed[key] = obj
	}
	return typed, nil
}

func encode(v interface{}) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return msgpack.Marshal(v)
}

func decode(b []byte, dest interface{}) error {
	if p, ok := dest.(*[]byte); ok {
		*p = append((*p)[:0], b...)
		return nil
	}
	return msgpack.Unmarshal(b, dest)
}

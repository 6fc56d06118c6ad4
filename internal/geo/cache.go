package geo

import (
	"context"
	"errors"
	"sync"

	"github.com/8adimka/Go_Weather_Assistant/internal/redisx"
)

// CoordinateCache maps raw city strings to coordinates. Entries are written
// once and never replaced: PutIfAbsent returns whatever value is stored after
// the call, which is the caller's value only if the key was new.
//
// Keys are the literal input strings. "北京市" and "北京" are different keys.
type CoordinateCache interface {
	Get(ctx context.Context, city string) (Coordinate, bool, error)
	PutIfAbsent(ctx context.Context, city string, c Coordinate) (Coordinate, error)
}

// MemoryCache is the default per-Geocoder cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Coordinate
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Coordinate)}
}

func (m *MemoryCache) Get(_ context.Context, city string) (Coordinate, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.entries[city]
	return c, ok, nil
}

func (m *MemoryCache) PutIfAbsent(_ context.Context, city string, c Coordinate) (Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[city]; ok {
		return existing, nil
	}
	m.entries[city] = c
	return c, nil
}

// Len returns the number of cached cities.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// RedisCache shares resolved coordinates between processes. Keys never expire.
type RedisCache struct {
	cache *redisx.Cache
}

func NewRedisCache(cache *redisx.Cache) *RedisCache {
	return &RedisCache{cache: cache}
}

func (r *RedisCache) Get(ctx context.Context, city string) (Coordinate, bool, error) {
	var c Coordinate
	err := r.cache.Get(ctx, r.cache.Key(city), &c)
	switch {
	case errors.Is(err, redisx.ErrCacheMiss):
		return Coordinate{}, false, nil
	case err != nil:
		return Coordinate{}, false, err
	}
	return c, true, nil
}

func (r *RedisCache) PutIfAbsent(ctx context.Context, city string, c Coordinate) (Coordinate, error) {
	key := r.cache.Key(city)
	wrote, err := r.cache.SetIfAbsent(ctx, key, c)
	if err != nil {
		return c, err
	}
	if wrote {
		return c, nil
	}
	var existing Coordinate
	if err := r.cache.Get(ctx, key, &existing); err != nil {
		return c, err
	}
	return existing, nil
}

package suggest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/taskboard/internal/clock"
	"github.com/benvon/taskboard/internal/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a suggestion stays valid
const DefaultCacheTTL = 5 * time.Minute

// Cache stores suggestions by key. Get must never return an expired entry.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Clear(ctx context.Context) error
}

// CacheKey builds the lookup key for a request
func CacheKey(t Type, prompt string) string {
	return string(t) + "_" + prompt
}

type cacheEntry struct {
	value    string
	storedAt time.Time
}

// MemoryCache is an in-process TTL cache. Expired entries are evicted when looked up.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   clock.Clock
}

// NewMemoryCache creates an in-memory cache; a nil clock uses real time
func NewMemoryCache(ttl time.Duration, c clock.Clock) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if c == nil {
		c = clock.Real()
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   c,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if m.clock.Now().Sub(entry.storedAt) >= m.ttl {
		delete(m.entries, key)
		return "", false
	}
	return entry.value, true
}

func (m *MemoryCache) Set(_ context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cacheEntry{value: value, storedAt: m.clock.Now()}
}

func (m *MemoryCache) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]cacheEntry)
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// DefaultRedisCachePrefix namespaces cache keys in a shared Redis
const DefaultRedisCachePrefix = "taskboard_ai_"

// RedisCache keeps suggestions in Redis so several server replicas share them.
// Expiry is delegated to Redis (SET ... PX).
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisCachePrefix
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (r *RedisCache) Set(ctx context.Context, key, value string) {
	// A failed cache write only costs a future request.
	_ = r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *RedisCache) Clear(ctx context.Context) error {
	if err := storage.DeleteRedisPrefix(ctx, r.client, r.prefix); err != nil {
		return fmt.Errorf("failed to clear AI cache: %w", err)
	}
	return nil
}

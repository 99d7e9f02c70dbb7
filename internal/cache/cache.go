// Package cache provides the upstream response cache used by the EDGAR client.
// Redis is used when configured and reachable; otherwise entries live in process memory.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores opaque byte payloads with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Backend() string
	Close() error
}

// New returns a Redis cache if redisURL is set and answers a ping, else a memory cache.
func New(redisURL string, log zerolog.Logger) Cache {
	log = log.With().Str("component", "cache").Logger()

	if redisURL == "" {
		log.Info().Msg("Redis not configured, using in-memory cache")
		return NewMemoryCache()
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid REDIS_URL, using in-memory cache")
		return NewMemoryCache()
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Warn().Err(err).Msg("Redis unreachable, using in-memory cache")
		return NewMemoryCache()
	}

	log.Info().Str("addr", opt.Addr).Msg("Using Redis cache")
	return NewRedisCache(client)
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, keyPrefix: "thirteenf:"}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.keyPrefix+key, val, ttl).Err()
}

func (r *RedisCache) Backend() string { return "redis" }

func (r *RedisCache) Close() error { return r.client.Close() }

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memItem
	now   func() time.Time
}

type memItem struct {
	val []byte
	exp time.Time
}

// NewMemoryCache creates an empty memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memItem), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if !it.exp.IsZero() && m.now().After(it.exp) {
		delete(m.items, key)
		return nil, false
	}
	return it.val, true
}

// Set stores val; a non-positive ttl never expires.
func (m *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.items[key] = memItem{val: val, exp: exp}
	return nil
}

func (m *MemoryCache) Backend() string { return "memory" }

func (m *MemoryCache) Close() error { return nil }

// Len returns the number of stored entries, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Marshal encodes a value for storage.
func Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes a stored value.
func Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

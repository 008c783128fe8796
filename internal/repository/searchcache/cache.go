package searchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ctxsearch/internal/cache"
	"github.com/kailas-cloud/ctxsearch/internal/db"
	"github.com/kailas-cloud/ctxsearch/internal/domain"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
)

// delBatch bounds the number of keys per DEL during Clear.
const delBatch = 500

// store is the consumer interface for the shared search cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

// Cache stores search responses in Redis/Valkey so every replica shares them.
// Expiry is delegated to the server (SET EX); capacity is bounded by the
// server's maxmemory policy. Counters are per process.
type Cache struct {
	store      store
	prefix     string
	defaultTTL time.Duration
	logger     *zap.Logger

	hits, misses, sets, deletes atomic.Int64
}

// New creates a shared cache. prefix scopes Clear and Stats to this service's keys.
func New(s store, prefix string, defaultTTL time.Duration, logger *zap.Logger) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = cache.DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: s, prefix: prefix, defaultTTL: defaultTTL, logger: logger}
}

// Get returns a cached response. Undecodable payloads are dropped and count as a miss.
func (c *Cache) Get(ctx context.Context, key string) (result.Response, bool, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		c.misses.Add(1)
		if errors.Is(err, db.ErrKeyNotFound) {
			return result.Response{}, false, nil
		}
		return result.Response{}, false, fmt.Errorf("%w: get: %w", domain.ErrCacheUnavailable, err)
	}

	var dto responseDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		c.misses.Add(1)
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		if _, delErr := c.store.Del(ctx, key); delErr != nil {
			c.logger.Warn("Failed to drop cache entry", zap.String("key", key), zap.Error(delErr))
		}
		return result.Response{}, false, nil
	}

	c.hits.Add(1)
	return fromDTO(dto), true, nil
}

// Set stores a response. ttl <= 0 uses the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value result.Response, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(toDTO(value))
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("%w: set: %w", domain.ErrCacheUnavailable, err)
	}
	c.sets.Add(1)
	return nil
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.store.Del(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: delete: %w", domain.ErrCacheUnavailable, err)
	}
	if n == 0 {
		return false, nil
	}
	c.deletes.Add(1)
	return true, nil
}

// Clear removes every key under the prefix.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		return fmt.Errorf("%w: scan: %w", domain.ErrCacheUnavailable, err)
	}
	for start := 0; start < len(keys); start += delBatch {
		end := min(start+delBatch, len(keys))
		if _, err := c.store.Del(ctx, keys[start:end]...); err != nil {
			return fmt.Errorf("%w: delete: %w", domain.ErrCacheUnavailable, err)
		}
	}
	c.logger.Info("Search cache cleared", zap.Int("keys", len(keys)))
	return nil
}

// Exists reports whether key is stored.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := c.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: exists: %w", domain.ErrCacheUnavailable, err)
	}
	return ok, nil
}

// Stats returns this process's counters and the number of keys under the prefix.
func (c *Cache) Stats(ctx context.Context) cache.Stats {
	s := cache.Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		c.logger.Warn("Failed to count cache keys", zap.Error(err))
		return s
	}
	s.Size = len(keys)
	return s
}

// Ping checks the backend.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}
	return nil
}

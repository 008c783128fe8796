// Package cache provides the in-process search cache: bounded, LRU evicted,
// with per-entry TTL checked on read and swept in the background.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bluele/gcache"
)

// Defaults used when the constructor receives zero values.
const (
	DefaultMaxItems      = 1000
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Deletes int64   `json:"deletes"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// Memory is a bounded in-process cache.
//
// Eviction is least-recently-used, where Get and Set count as use.
// Exists and Stats never touch recency. gcache owns ordering and capacity;
// expiry deadlines are tracked here against an injectable clock.
type Memory[V any] struct {
	mu         sync.Mutex
	items      gcache.Cache
	expires    map[string]time.Time
	defaultTTL time.Duration
	now        func() time.Time

	hits, misses, sets, deletes int64

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemory creates a cache holding at most maxItems entries.
func NewMemory[V any](maxItems int, defaultTTL time.Duration) *Memory[V] {
	return NewMemoryWithClock[V](maxItems, defaultTTL, time.Now)
}

// NewMemoryWithClock is NewMemory with an explicit time source for expiry.
func NewMemoryWithClock[V any](maxItems int, defaultTTL time.Duration, now func() time.Time) *Memory[V] {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Memory[V]{
		items:      gcache.New(maxItems).LRU().Build(),
		expires:    make(map[string]time.Time),
		defaultTTL: defaultTTL,
		now:        now,
		stop:       make(chan struct{}),
	}
}

// Get returns the cached value. Expired entries are dropped and reported as a miss.
func (c *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if !c.liveLocked(key) {
		c.dropLocked(key)
		c.misses++
		return zero, false, nil
	}
	raw, err := c.items.Get(key)
	if err != nil {
		c.misses++
		return zero, false, nil
	}
	v, ok := raw.(V)
	if !ok {
		c.dropLocked(key)
		c.misses++
		return zero, false, nil
	}
	c.hits++
	return v, true, nil
}

// Set stores value under key. ttl <= 0 uses the default TTL.
// When the cache is full the least recently used entry is evicted first.
func (c *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.items.Set(key, value); err != nil {
		return err //nolint:wrapcheck // gcache only fails with a serializer configured
	}
	c.expires[key] = c.now().Add(ttl)
	c.sets++
	return nil
}

// Delete removes key and reports whether it was present.
func (c *Memory[V]) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.liveLocked(key)
	c.dropLocked(key)
	if !live {
		return false, nil
	}
	c.deletes++
	return true, nil
}

// Clear drops every entry. Counters are kept.
func (c *Memory[V]) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Purge()
	clear(c.expires)
	return nil
}

// Exists reports whether a live entry is stored under key.
func (c *Memory[V]) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.liveLocked(key), nil
}

// Stats returns a counter snapshot. HitRate is 0 before the first Get.
func (c *Memory[V]) Stats(_ context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Sets:    c.sets,
		Deletes: c.deletes,
		Size:    c.items.Len(false),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Ping always succeeds for the in-process cache.
func (c *Memory[V]) Ping(_ context.Context) error { return nil }

// Sweep removes every expired entry and returns how many were dropped.
func (c *Memory[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, deadline := range c.expires {
		switch {
		case !c.items.Has(key):
			// evicted by gcache
			delete(c.expires, key)
		case !now.Before(deadline):
			c.dropLocked(key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done or Close is called.
func (c *Memory[V]) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// Close stops the background sweeper.
func (c *Memory[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// liveLocked checks presence and expiry without touching recency. Caller holds mu.
func (c *Memory[V]) liveLocked(key string) bool {
	deadline, ok := c.expires[key]
	if !ok || !c.items.Has(key) {
		return false
	}
	return c.now().Before(deadline)
}

func (c *Memory[V]) dropLocked(key string) {
	c.items.Remove(key)
	delete(c.expires, key)
}

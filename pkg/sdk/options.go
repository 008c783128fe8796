package ctxsearch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourceContentstack
	sourceFixture
	sourceEntries
)

type clientConfig struct {
	err    error
	source sourceKind

	apiKey        string
	deliveryToken string
	environment   string
	region        string
	baseURL       string
	sourceTimeout time.Duration

	fixturePath string
	entries     []entry.Entry

	cacheDisabled bool
	cacheDriver   string // "memory", "valkey" or "redis"
	cacheAddrs    []string
	cachePassword string
	standalone    bool
	cacheMaxItems int
	cacheTTL      time.Duration
	sweepInterval time.Duration
	keyPrefix     string

	maxResults int
	threshold  float64
	fuzzy      bool
	workers    int
	locale     string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithContentstack reads entries from the Contentstack Delivery API.
func WithContentstack(apiKey, deliveryToken, environment string) Option {
	return optionFunc(func(c *clientConfig) {
		c.source = sourceContentstack
		c.apiKey = apiKey
		c.deliveryToken = deliveryToken
		c.environment = environment
	})
}

// WithRegion selects the Contentstack region ("us" or "eu"). Default: us.
func WithRegion(region string) Option {
	return optionFunc(func(c *clientConfig) {
		c.region = region
	})
}

// WithBaseURL overrides the Contentstack delivery endpoint.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = url
	})
}

// WithSourceTimeout bounds each Contentstack request. Default: 10s.
func WithSourceTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.sourceTimeout = d
	})
}

// WithFixtures reads entries from a YAML or JSON fixture file.
func WithFixtures(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.source = sourceFixture
		c.fixturePath = path
	})
}

// WithEntries serves the given CMS-shaped entries. Entries without a uid
// make New fail.
func WithEntries(raw []map[string]any) Option {
	return optionFunc(func(c *clientConfig) {
		c.source = sourceEntries
		c.entries = nil
		for _, r := range raw {
			e, err := entry.FromMap(r, "")
			if err != nil {
				c.err = fmt.Errorf("ctxsearch: entry %d: %w", len(c.entries), err)
				return
			}
			c.entries = append(c.entries, e)
		}
	})
}

// WithMemoryCache keeps results in a process-local LRU cache (the default).
func WithMemoryCache(maxItems int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "memory"
		c.cacheMaxItems = maxItems
		c.cacheTTL = ttl
	})
}

// WithSweepInterval sets how often expired entries are purged from the
// memory cache. Default: 10 minutes.
func WithSweepInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.sweepInterval = d
	})
}

// WithValkey shares the result cache through a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "valkey"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithRedis shares the result cache through a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithStandalone disables cluster topology discovery.
// Use for standalone Valkey/Redis instances.
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithKeyPrefix namespaces cache keys. Default: "ctxsearch:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithoutCache disables result caching.
func WithoutCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDisabled = true
	})
}

// WithMaxResults sets the default number of results. Default: 10.
func WithMaxResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxResults = n
	})
}

// WithThreshold sets the minimum relevance score in [0, 1]. Default: 0.3.
func WithThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = t
	})
}

// WithFuzzyMatching ranks by edit distance instead of the weighted scorer.
func WithFuzzyMatching() Option {
	return optionFunc(func(c *clientConfig) {
		c.fuzzy = true
	})
}

// WithWorkers sets the number of scoring goroutines.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithLocale sets the default entry locale. Default: en-us.
func WithLocale(locale string) Option {
	return optionFunc(func(c *clientConfig) {
		c.locale = locale
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// SearchOption tunes a single search.
type SearchOption func(*searchConfig)

type searchConfig struct {
	contentTypes []string
	maxResults   int
	useCache     *bool
	locale       string
}

// ContentTypes restricts a search to the given content types.
func ContentTypes(types ...string) SearchOption {
	return func(s *searchConfig) { s.contentTypes = types }
}

// Limit caps the number of results of a search.
func Limit(n int) SearchOption {
	return func(s *searchConfig) { s.maxResults = n }
}

// NoCache bypasses the result cache for a search.
func NoCache() SearchOption {
	return func(s *searchConfig) {
		off := false
		s.useCache = &off
	}
}

// Locale overrides the entry locale for a search.
func Locale(locale string) SearchOption {
	return func(s *searchConfig) { s.locale = locale }
}

package ctxsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/ctxsearch/internal/cache"
	dbRedis "github.com/kailas-cloud/ctxsearch/internal/db/redis"
	domchat "github.com/kailas-cloud/ctxsearch/internal/domain/chat"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/repository/searchcache"
	"github.com/kailas-cloud/ctxsearch/internal/repository/source/static"
	"github.com/kailas-cloud/ctxsearch/internal/score"
	"github.com/kailas-cloud/ctxsearch/internal/transport/contentstack"
	healthuc "github.com/kailas-cloud/ctxsearch/internal/usecase/health"
	"github.com/kailas-cloud/ctxsearch/internal/usecase/match"
	searchuc "github.com/kailas-cloud/ctxsearch/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "ctxsearch:"
	defaultThreshold        = 0.3
)

// Internal interfaces, swapped out in tests.
type searchUseCase interface {
	Search(ctx context.Context, query string, opts searchuc.Options) searchuc.Outcome
	FormatForPrompt(results []result.Scored, maxLength int) string
	Enhance(ctx context.Context, messages []domchat.Message, userQuery string,
		opts searchuc.EnhanceOptions) searchuc.EnhanceResult
	ClearCache(ctx context.Context) bool
	Stats(ctx context.Context) searchuc.Stats
	ContentTypes(ctx context.Context) ([]string, error)
}

type contentSource interface {
	searchuc.Source
	healthuc.Checker
}

type resultCache interface {
	searchuc.Cache
	healthuc.Pinger
}

// Client is the ctxsearch SDK entry point.
type Client struct {
	searchSvc searchUseCase
	healthSvc healthUseCase
	closers   []func()
	obs       *observer
}

// New creates a Client. A content source option is required. The provided
// context bounds the readiness check of a shared cache.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{threshold: defaultThreshold, keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	src, err := createSource(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c, closeCache, err := createCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return wireClient(src, c, closeCache, cfg, obs), nil
}

func createSource(cfg *clientConfig) (contentSource, error) {
	switch cfg.source {
	case sourceContentstack:
		return contentstack.NewClient(&contentstack.Config{
			APIKey:        cfg.apiKey,
			DeliveryToken: cfg.deliveryToken,
			Environment:   cfg.environment,
			Region:        cfg.region,
			BaseURL:       cfg.baseURL,
			Timeout:       cfg.sourceTimeout,
		}), nil
	case sourceFixture:
		s, err := static.Load(cfg.fixturePath)
		if err != nil {
			return nil, fmt.Errorf("ctxsearch: %w", err)
		}
		return s, nil
	case sourceEntries:
		return static.New(cfg.entries), nil
	default:
		return nil, errors.New("ctxsearch: content source required (use WithContentstack, WithFixtures or WithEntries)")
	}
}

// createCache returns a nil cache when caching is disabled.
func createCache(ctx context.Context, cfg *clientConfig) (resultCache, func(), error) {
	if cfg.cacheDisabled {
		return nil, func() {}, nil
	}
	switch cfg.cacheDriver {
	case "", "memory":
		m := cache.NewMemory[result.Response](cfg.cacheMaxItems, cfg.cacheTTL)
		sweepCtx, cancel := context.WithCancel(context.Background())
		m.StartSweeper(sweepCtx, cfg.sweepInterval)
		return m, func() {
			cancel()
			m.Close()
		}, nil
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.cacheAddrs,
			Password:   cfg.cachePassword,
			Standalone: cfg.standalone,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("ctxsearch: create %s store: %w", cfg.cacheDriver, err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("ctxsearch: %s not ready: %w", cfg.cacheDriver, err)
		}
		return searchcache.New(s, cfg.keyPrefix, cfg.cacheTTL, nil), s.Close, nil
	default:
		return nil, nil, fmt.Errorf("ctxsearch: unknown cache driver %q", cfg.cacheDriver)
	}
}

func wireClient(src contentSource, c resultCache, closeCache func(), cfg *clientConfig, obs *observer) *Client {
	// Pass nil interfaces (not typed nil pointers) when caching is off.
	var (
		sc     searchuc.Cache
		pinger healthuc.Pinger
	)
	if c != nil {
		sc, pinger = c, c
	}

	searchSvc := searchuc.New(src, match.New(score.New(), cfg.workers), sc, searchuc.Config{
		MaxResults:    cfg.maxResults,
		Threshold:     cfg.threshold,
		Mode:          mode.FromFlag(!cfg.fuzzy),
		UseCache:      sc != nil,
		CacheTTL:      cfg.cacheTTL,
		DefaultLocale: cfg.locale,
		KeyPrefix:     cfg.keyPrefix,
	})

	return &Client{
		searchSvc: searchSvc,
		healthSvc: healthuc.New(src, pinger, nil),
		closers:   []func(){closeCache},
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	for _, fn := range c.closers {
		if fn != nil {
			fn()
		}
	}
}

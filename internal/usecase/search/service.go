package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ctxsearch/internal/cache"
	"github.com/kailas-cloud/ctxsearch/internal/domain"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/options"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/domain/source"
	"github.com/kailas-cloud/ctxsearch/internal/format"
	"github.com/kailas-cloud/ctxsearch/internal/logger"
	"github.com/kailas-cloud/ctxsearch/internal/metrics"
)

// Config holds service-wide search defaults.
type Config struct {
	MaxResults       int
	Threshold        float64
	Mode             mode.Mode
	UseCache         bool
	CacheTTL         time.Duration
	FetchMultiplier  int
	DefaultLocale    string
	KeyPrefix        string
	MaxContextLength int
}

func (c *Config) applyDefaults() {
	if c.MaxResults <= 0 {
		c.MaxResults = options.DefaultMaxResults
	}
	if c.Mode == "" {
		c.Mode = mode.Semantic
	}
	if c.FetchMultiplier <= 0 {
		c.FetchMultiplier = 2
	}
	if c.DefaultLocale == "" {
		c.DefaultLocale = "en-us"
	}
	if c.MaxContextLength <= 0 {
		c.MaxContextLength = format.DefaultMaxLength
	}
}

// Options are per-request overrides. Zero values fall back to Config.
type Options struct {
	ContentTypes []string
	MaxResults   int
	UseCache     *bool
	Locale       string
}

// Outcome is the result envelope of a search. Success is false only when
// the search could not run at all (source missing or failing).
type Outcome struct {
	Success bool
	Data    *result.Response
	Error   string
	// Err is the failure behind Error, for callers that map it to a status.
	Err           error
	Cached        bool
	ExecutionTime time.Duration
}

// Stats summarises the service state.
type Stats struct {
	Configured bool        `json:"configured"`
	Cache      cache.Stats `json:"cache"`
}

// Service runs cached content searches.
type Service struct {
	source  Source
	matcher Matcher
	cache   Cache
	cfg     Config
}

// New creates a search service. c may be nil to disable caching.
func New(src Source, m Matcher, c Cache, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{source: src, matcher: m, cache: c, cfg: cfg}
}

// Search fetches candidates, ranks them against query and caches non-empty rankings.
func (s *Service) Search(ctx context.Context, query string, opts Options) Outcome {
	start := time.Now()
	ctx = logger.WithFields(ctx, zap.String("query", query))
	log := logger.FromContext(ctx)

	if !s.source.Ready() {
		metrics.SearchRequestsTotal.WithLabelValues("not_configured").Inc()
		return Outcome{
			Error:         domain.ErrSourceNotConfigured.Error(),
			Err:           domain.ErrSourceNotConfigured,
			ExecutionTime: time.Since(start),
		}
	}

	maxResults := s.cfg.MaxResults
	if opts.MaxResults > 0 {
		maxResults = min(opts.MaxResults, options.MaxMaxResults)
	}
	useCache := s.cfg.UseCache
	if opts.UseCache != nil {
		useCache = *opts.UseCache
	}
	useCache = useCache && s.cache != nil
	locale := opts.Locale
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}

	key := BuildCacheKey(s.cfg.KeyPrefix, query, opts.ContentTypes, maxResults, locale)

	if useCache {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("Search cache read failed", zap.String("key", key), zap.Error(err))
		case ok:
			metrics.CacheTotal.WithLabelValues("hit").Inc()
			elapsed := time.Since(start)
			resp := cached.WithCacheHit(true)
			s.observe("cached", elapsed, len(resp.Results()))
			return Outcome{Success: true, Data: &resp, Cached: true, ExecutionTime: elapsed}
		default:
			metrics.CacheTotal.WithLabelValues("miss").Inc()
		}
	}

	matchOpts, err := options.New(s.cfg.Threshold, maxResults, true, nil, s.cfg.Mode)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		err = fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		return Outcome{Error: err.Error(), Err: err, ExecutionTime: time.Since(start)}
	}

	page, err := s.source.FetchEntries(ctx, source.Query{
		Text:         query,
		ContentTypes: opts.ContentTypes,
		Limit:        maxResults * s.cfg.FetchMultiplier,
		Locale:       locale,
	})
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		log.Error("Content fetch failed", zap.String("query", query), zap.Error(err))
		return Outcome{Error: err.Error(), Err: err, ExecutionTime: time.Since(start)}
	}

	results, matchErr := s.matcher.Match(ctx, query, page.Entries, matchOpts)
	elapsed := time.Since(start)
	resp := result.NewResponse(results, len(results), elapsed)
	if matchErr != nil {
		// the ranking is unusable; report it without failing the request
		resp = resp.WithError(domain.ErrScoringFailed.Error())
	}

	if useCache && matchErr == nil && len(results) > 0 && ctx.Err() == nil {
		if err := s.cache.Set(ctx, key, resp, s.cfg.CacheTTL); err != nil {
			log.Warn("Search cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	log.Debug("Search completed",
		zap.String("query", query),
		zap.Int("candidates", len(page.Entries)),
		zap.Int("results", len(results)),
		zap.Duration("duration", elapsed),
	)
	s.observe("ok", elapsed, len(results))
	return Outcome{Success: true, Data: &resp, ExecutionTime: elapsed}
}

func (s *Service) observe(status string, elapsed time.Duration, n int) {
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()
	cached := "false"
	if status == "cached" {
		cached = "true"
	}
	metrics.SearchDuration.WithLabelValues(cached).Observe(elapsed.Seconds())
	metrics.SearchResults.Observe(float64(n))
}

// FormatForPrompt renders results as an LLM context block.
// maxLength <= 0 uses the configured default.
func (s *Service) FormatForPrompt(results []result.Scored, maxLength int) string {
	if maxLength <= 0 {
		maxLength = s.cfg.MaxContextLength
	}
	return format.Format(results, maxLength)
}

// ClearCache drops every cached search. Reports false when the cache failed.
func (s *Service) ClearCache(ctx context.Context) bool {
	if s.cache == nil {
		return true
	}
	if err := s.cache.Clear(ctx); err != nil {
		logger.FromContext(ctx).Error("Search cache clear failed", zap.Error(err))
		return false
	}
	return true
}

// Stats reports whether the source is configured plus cache counters.
func (s *Service) Stats(ctx context.Context) Stats {
	st := Stats{Configured: s.source.Ready()}
	if s.cache != nil {
		st.Cache = s.cache.Stats(ctx)
	}
	return st
}

// ContentTypes lists the content types of the source. An unconfigured
// source yields an empty list.
func (s *Service) ContentTypes(ctx context.Context) ([]string, error) {
	if !s.source.Ready() {
		return []string{}, nil
	}
	types, err := s.source.ListContentTypes(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // source errors carry their own context
	}
	return types, nil
}

package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/ctxsearch/internal/cache"
	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/options"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/domain/source"
)

// Source provides candidate entries from the content store.
type Source interface {
	Ready() bool
	FetchEntries(ctx context.Context, q source.Query) (source.Page, error)
	ListContentTypes(ctx context.Context) ([]string, error)
}

// Matcher ranks entries against a query.
type Matcher interface {
	Match(ctx context.Context, query string, entries []entry.Entry, opts options.Match) ([]result.Scored, error)
}

// Cache stores finished search responses.
type Cache interface {
	Get(ctx context.Context, key string) (result.Response, bool, error)
	Set(ctx context.Context, key string, value result.Response, ttl time.Duration) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) cache.Stats
}

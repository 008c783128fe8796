package search

import (
	"context"
	"errors"
	"time"

	"github.com/kailas-cloud/ctxsearch/internal/cache"
	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/options"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/domain/source"
)

// --- Mocks ---

type mockSource struct {
	ready     bool
	page      source.Page
	err       error
	types     []string
	typesErr  error
	lastQuery source.Query
	fetches   int
}

func (m *mockSource) Ready() bool { return m.ready }

func (m *mockSource) FetchEntries(_ context.Context, q source.Query) (source.Page, error) {
	m.fetches++
	m.lastQuery = q
	return m.page, m.err
}

func (m *mockSource) ListContentTypes(_ context.Context) ([]string, error) {
	return m.types, m.typesErr
}

type mockMatcher struct {
	matchFn  func(ctx context.Context, query string, entries []entry.Entry, opts options.Match) ([]result.Scored, error)
	calls    int
	lastOpts options.Match
}

func (m *mockMatcher) Match(
	ctx context.Context, query string, entries []entry.Entry, opts options.Match,
) ([]result.Scored, error) {
	m.calls++
	m.lastOpts = opts
	if m.matchFn != nil {
		return m.matchFn(ctx, query, entries, opts)
	}
	return nil, nil
}

type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) (result.Response, bool, error) {
	return result.Response{}, false, errCacheDown
}

func (brokenCache) Set(context.Context, string, result.Response, time.Duration) error {
	return errCacheDown
}

func (brokenCache) Clear(context.Context) error { return errCacheDown }

func (brokenCache) Stats(context.Context) cache.Stats { return cache.Stats{} }

// --- Helpers ---

func testEntries() []entry.Entry {
	return []entry.Entry{
		entry.New("a", "faq", time.Time{}, map[string]entry.Value{"title": entry.String("Return policy")}),
		entry.New("b", "faq", time.Time{}, map[string]entry.Value{"title": entry.String("Shipping")}),
	}
}

// scoreAll returns every entry with a descending score.
func scoreAll(_ context.Context, _ string, entries []entry.Entry, _ options.Match) ([]result.Scored, error) {
	out := make([]result.Scored, 0, len(entries))
	for i, e := range entries {
		md := &entry.Metadata{Title: e.ID()}
		out = append(out, result.New(e, 0.9-float64(i)*0.1, "text "+e.ID(), md))
	}
	return out, nil
}

func boolPtr(b bool) *bool { return &b }

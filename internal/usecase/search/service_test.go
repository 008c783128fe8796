package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ctxsearch/internal/cache"
	"github.com/kailas-cloud/ctxsearch/internal/domain"
	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/options"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/domain/source"
	"github.com/kailas-cloud/ctxsearch/internal/format"
)

func newService(src *mockSource, m *mockMatcher, c Cache) *Service {
	return New(src, m, c, Config{UseCache: true, Threshold: 0.3, KeyPrefix: "test:"})
}

func TestSearch_NotConfigured(t *testing.T) {
	src := &mockSource{}
	svc := newService(src, &mockMatcher{}, nil)

	out := svc.Search(context.Background(), "return policy", Options{})

	require.False(t, out.Success)
	assert.Equal(t, domain.ErrSourceNotConfigured.Error(), out.Error)
	assert.ErrorIs(t, out.Err, domain.ErrSourceNotConfigured)
	assert.Zero(t, src.fetches, "source must not be called when not configured")
}

func TestSearch_Defaults(t *testing.T) {
	src := &mockSource{ready: true, page: source.Page{Entries: testEntries(), TotalCount: 2}}
	m := &mockMatcher{matchFn: scoreAll}
	svc := newService(src, m, nil)

	out := svc.Search(context.Background(), "return", Options{ContentTypes: []string{"faq"}})

	require.True(t, out.Success)
	require.NotNil(t, out.Data)

	assert.Equal(t, 20, src.lastQuery.Limit, "fetch limit is max results times the multiplier")
	assert.Equal(t, "en-us", src.lastQuery.Locale)
	assert.Equal(t, "return", src.lastQuery.Text)
	assert.Equal(t, []string{"faq"}, src.lastQuery.ContentTypes)

	assert.Equal(t, 10, m.lastOpts.MaxResults())
	assert.InDelta(t, 0.3, m.lastOpts.Threshold(), 1e-9)
	assert.True(t, m.lastOpts.IncludeMetadata())
	assert.Equal(t, mode.Semantic, m.lastOpts.Mode())

	assert.Equal(t, 2, out.Data.TotalCount())
	assert.Len(t, out.Data.Results(), 2)
	assert.False(t, out.Cached, "first search must not be cached")
	assert.False(t, out.Data.CacheHit())
}

func TestSearch_MaxResultsOverride(t *testing.T) {
	src := &mockSource{ready: true, page: source.Page{Entries: testEntries()}}
	m := &mockMatcher{matchFn: scoreAll}
	svc := New(src, m, nil, Config{FetchMultiplier: 3})

	svc.Search(context.Background(), "q", Options{MaxResults: 4, Locale: "fr-fr"})

	assert.Equal(t, 12, src.lastQuery.Limit)
	assert.Equal(t, "fr-fr", src.lastQuery.Locale)
	assert.Equal(t, 4, m.lastOpts.MaxResults())
}

func TestSearch_TotalCountIsMatchedResults(t *testing.T) {
	src := &mockSource{ready: true, page: source.Page{Entries: testEntries(), TotalCount: 57}}
	svc := newService(src, &mockMatcher{matchFn: scoreAll}, nil)

	out := svc.Search(context.Background(), "q", Options{})

	require.True(t, out.Success)
	assert.Equal(t, len(out.Data.Results()), out.Data.TotalCount())
}

func TestSearch_CacheHit(t *testing.T) {
	src := &mockSource{ready: true, page: source.Page{Entries: testEntries()}}
	m := &mockMatcher{matchFn: scoreAll}
	svc := newService(src, m, cache.NewMemory[result.Response](10, time.Minute))
	ctx := context.Background()

	first := svc.Search(ctx, "Return Policy", Options{ContentTypes: []string{"faq", "blog"}})
	second := svc.Search(ctx, "return policy", Options{ContentTypes: []string{"blog", "faq"}})

	assert.False(t, first.Cached, "first search must miss")
	assert.True(t, second.Cached, "second search must hit the cache")
	assert.True(t, second.Data.CacheHit())
	assert.Equal(t, 1, src.fetches)
	assert.Equal(t, 1, m.calls)
	assert.Len(t, second.Data.Results(), 2)
}

func TestSearch_CacheDisabledPerRequest(t *testing.T) {
	src := &mockSource{ready: true, page: source.Page{Entries: testEntries()}}
	m := &mockMatcher{matchFn: scoreAll}
	c := cache.NewMemory[result.Response](10, time.Minute)
	svc := newService(src, m, c)

	svc.Search(context.Background(), "q", Options{UseCache: boolPtr(false)})
	svc.Search(context.Background(), "q", Options{UseCache: boolPtr(false)})

	assert.Equal(t, 2, src.fetches)
	assert.Zero(t, c.Stats(context.Background()).Sets, "nothing should be cached")
}

func TestSearch_EmptyResultsNotCached(t *testing.T) {
	src := &mockSource{ready: true, page: source.Page{Entries: testEntries()}}
	c := cache.NewMemory[result.Response](10, time.Minute)
	svc := newService(src, &mockMatcher{}, c)

	out := svc.Search(context.Background(), "nothing", Options{})

	require.True(t, out.Success)
	assert.Empty(t, out.Data.Results())
	assert.Zero(t, out.Data.TotalCount())
	assert.Zero(t, c.Stats(context.Background()).Sets, "empty rankings must not be cached")
}

func TestSearch_FetchError(t *testing.T) {
	src := &mockSource{ready: true, err: domain.NewSourceError(401, "Invalid API key")}
	m := &mockMatcher{}
	svc := newService(src, m, nil)

	out := svc.Search(context.Background(), "q", Options{})

	require.False(t, out.Success)
	assert.Contains(t, out.Error, "Invalid API key")
	assert.ErrorIs(t, out.Err, domain.ErrSourceUnavailable)
	assert.Zero(t, m.calls, "matcher must not run after a fetch error")
}

func TestSearch_ScoringFailure(t *testing.T) {
	src := &mockSource{ready: true, page: source.Page{Entries: testEntries()}}
	m := &mockMatcher{matchFn: func(context.Context, string, []entry.Entry, options.Match) ([]result.Scored, error) {
		return nil, domain.ErrScoringFailed
	}}
	c := cache.NewMemory[result.Response](10, time.Minute)
	svc := newService(src, m, c)

	out := svc.Search(context.Background(), "q", Options{})

	require.True(t, out.Success, "scoring failure must still be a successful search")
	assert.Empty(t, out.Data.Results())
	assert.Equal(t, domain.ErrScoringFailed.Error(), out.Data.Error())
	assert.Zero(t, c.Stats(context.Background()).Sets, "failed rankings must not be cached")
}

func TestSearch_CancelledDuringMatchNotCached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &mockSource{ready: true, page: source.Page{Entries: testEntries()}}
	m := &mockMatcher{matchFn: func(ctx context.Context, q string, e []entry.Entry, o options.Match) ([]result.Scored, error) {
		cancel()
		return scoreAll(ctx, q, e, o)
	}}
	c := cache.NewMemory[result.Response](10, time.Minute)
	svc := newService(src, m, c)

	svc.Search(ctx, "q", Options{})

	assert.Zero(t, c.Stats(context.Background()).Sets, "cancelled searches must not be cached")
}

func TestSearch_BrokenCacheDegrades(t *testing.T) {
	src := &mockSource{ready: true, page: source.Page{Entries: testEntries()}}
	svc := newService(src, &mockMatcher{matchFn: scoreAll}, brokenCache{})

	out := svc.Search(context.Background(), "q", Options{})

	require.True(t, out.Success, "cache failures must not fail the search")
	assert.Len(t, out.Data.Results(), 2)
	assert.False(t, svc.ClearCache(context.Background()))
}

func TestBuildCacheKey(t *testing.T) {
	tests := []struct {
		name  string
		query string
		types []string
		want  string
	}{
		{"basic", "Return Policy?", []string{"faq"}, "p:mcp:content_search:return_policy_:faq:10:en-us"},
		{"sorted types", "x", []string{"product", "faq"}, "p:mcp:content_search:x:faq,product:10:en-us"},
		{"no types", "x", nil, "p:mcp:content_search:x::10:en-us"},
		{"accents", "Café", nil, "p:mcp:content_search:cafe::10:en-us"},
		{"capped", strings.Repeat("a", 80), nil, "p:mcp:content_search:" + strings.Repeat("a", 50) + "::10:en-us"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildCacheKey("p:", tt.query, tt.types, 10, "en-us"))
		})
	}
}

func TestBuildCacheKey_DoesNotReorderInput(t *testing.T) {
	types := []string{"b", "a"}
	BuildCacheKey("", "q", types, 1, "en-us")

	assert.Equal(t, []string{"b", "a"}, types)
}

func TestFormatForPrompt_DefaultLength(t *testing.T) {
	svc := newService(&mockSource{}, &mockMatcher{}, nil)

	assert.Equal(t, format.NoContent, svc.FormatForPrompt(nil, 0))
}

func TestClearCacheAndStats(t *testing.T) {
	c := cache.NewMemory[result.Response](10, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", result.Response{}, 0))
	svc := newService(&mockSource{ready: true}, &mockMatcher{}, c)

	st := svc.Stats(ctx)
	assert.True(t, st.Configured)
	assert.Equal(t, 1, st.Cache.Size)

	require.True(t, svc.ClearCache(ctx))
	assert.Zero(t, svc.Stats(ctx).Cache.Size)

	noCache := newService(&mockSource{}, &mockMatcher{}, nil)
	assert.True(t, noCache.ClearCache(ctx), "clearing without a cache is a no-op success")
}

func TestContentTypes(t *testing.T) {
	ctx := context.Background()

	svc := newService(&mockSource{ready: true, types: []string{"faq"}}, &mockMatcher{}, nil)
	types, err := svc.ContentTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"faq"}, types)

	svc = newService(&mockSource{}, &mockMatcher{}, nil)
	types, err = svc.ContentTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, types, "unconfigured source should list nothing")

	svc = newService(&mockSource{ready: true, typesErr: domain.ErrSourceUnavailable}, &mockMatcher{}, nil)
	_, err = svc.ContentTypes(ctx)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

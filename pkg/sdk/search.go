package ctxsearch

import (
	"context"
	"fmt"
	"time"

	domchat "github.com/kailas-cloud/ctxsearch/internal/domain/chat"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/format"
	searchuc "github.com/kailas-cloud/ctxsearch/internal/usecase/search"
)

// Search ranks source entries against query, best first.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (_ SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "query", query) }()

	out, err := c.search(ctx, query, opts)
	if err != nil {
		return SearchResponse{}, err
	}

	c.obs.cacheResult(out.Cached)
	resp := SearchResponse{
		Results:    toResults(out.Data.Results()),
		TotalCount: out.Data.TotalCount(),
		Cached:     out.Cached,
		Duration:   out.ExecutionTime,
		Warning:    out.Data.Error(),
	}
	return resp, nil
}

// Context searches for query and renders the results as an LLM context
// block of at most maxLength characters plus the fixed footer.
// maxLength <= 0 uses the default.
func (c *Client) Context(ctx context.Context, query string, maxLength int, opts ...SearchOption) (_ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("context", start, err) }()

	out, err := c.search(ctx, query, opts)
	if err != nil {
		return "", err
	}
	return c.searchSvc.FormatForPrompt(out.Data.Results(), maxLength), nil
}

func (c *Client) search(ctx context.Context, query string, opts []SearchOption) (searchuc.Outcome, error) {
	var sc searchConfig
	for _, o := range opts {
		o(&sc)
	}

	out := c.searchSvc.Search(ctx, query, searchuc.Options{
		ContentTypes: sc.contentTypes,
		MaxResults:   sc.maxResults,
		UseCache:     sc.useCache,
		Locale:       sc.locale,
	})
	if !out.Success {
		if out.Err != nil {
			return out, fmt.Errorf("search: %w", out.Err)
		}
		return out, fmt.Errorf("search: %s", out.Error)
	}
	return out, nil
}

// Enhance adds knowledge-base context for userQuery to a conversation and
// reports how many results were used. The input slice is not modified; when
// nothing relevant is found the messages come back unchanged.
func (c *Client) Enhance(ctx context.Context, messages []Message, userQuery string, opts ...SearchOption) ([]Message, int) {
	start := time.Now()

	var sc searchConfig
	for _, o := range opts {
		o(&sc)
	}

	in := make([]domchat.Message, len(messages))
	for i, m := range messages {
		in[i] = domchat.Message{Role: domchat.Role(m.Role), Content: m.Content}
	}

	res := c.searchSvc.Enhance(ctx, in, userQuery, searchuc.EnhanceOptions{
		ContentTypes: sc.contentTypes,
		MaxResults:   sc.maxResults,
	})
	c.obs.observe("enhance", start, nil, "results", len(res.Results))

	out := make([]Message, len(res.Messages))
	for i, m := range res.Messages {
		out[i] = Message{Role: Role(m.Role), Content: m.Content}
	}
	return out, len(res.Results)
}

// ContentTypes lists the content types of the source.
func (c *Client) ContentTypes(ctx context.Context) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("content_types", start, err) }()

	types, err := c.searchSvc.ContentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("content types: %w", err)
	}
	return types, nil
}

// ClearCache drops every cached search response. It reports false when
// the cache backend failed.
func (c *Client) ClearCache(ctx context.Context) bool {
	return c.searchSvc.ClearCache(ctx)
}

// Stats reports whether the source is configured and the cache counters.
func (c *Client) Stats(ctx context.Context) Stats {
	s := c.searchSvc.Stats(ctx)
	return Stats{
		Configured: s.Configured,
		Cache: CacheStats{
			Hits:    s.Cache.Hits,
			Misses:  s.Cache.Misses,
			Size:    s.Cache.Size,
			HitRate: s.Cache.HitRate,
		},
	}
}

func toResults(scored []result.Scored) []Result {
	out := make([]Result, 0, len(scored))
	for i := range scored {
		r := &scored[i]
		e := r.Entry()
		item := Result{
			ID:          e.ID(),
			ContentType: r.ContentType(),
			Score:       r.Score(),
			Excerpt:     format.CreateExcerpt(r.Text(), format.ExcerptLength),
			UpdatedAt:   e.UpdatedAt(),
			Entry:       e.ToMap(),
		}
		if md := r.Metadata(); md != nil {
			item.Title = md.Title
			item.Description = md.Description
			item.Tags = md.Tags
			item.Category = md.Category
		}
		out = append(out, item)
	}
	return out
}

package ctxsearch

import (
	"context"

	domchat "github.com/kailas-cloud/ctxsearch/internal/domain/chat"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/ctxsearch/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn  func(ctx context.Context, query string, opts searchuc.Options) searchuc.Outcome
	enhanceFn func(ctx context.Context, msgs []domchat.Message, q string, opts searchuc.EnhanceOptions) searchuc.EnhanceResult
	typesFn   func(ctx context.Context) ([]string, error)
	cleared   bool
	stats     searchuc.Stats
}

func (m *mockSearchUC) Search(ctx context.Context, query string, opts searchuc.Options) searchuc.Outcome {
	return m.searchFn(ctx, query, opts)
}

func (m *mockSearchUC) FormatForPrompt(results []result.Scored, _ int) string {
	if len(results) == 0 {
		return "empty"
	}
	return "block"
}

func (m *mockSearchUC) Enhance(
	ctx context.Context, msgs []domchat.Message, q string, opts searchuc.EnhanceOptions,
) searchuc.EnhanceResult {
	return m.enhanceFn(ctx, msgs, q, opts)
}

func (m *mockSearchUC) ClearCache(context.Context) bool { return m.cleared }

func (m *mockSearchUC) Stats(context.Context) searchuc.Stats { return m.stats }

func (m *mockSearchUC) ContentTypes(ctx context.Context) ([]string, error) {
	return m.typesFn(ctx)
}

// --- helpers ---

func testClient(svc searchUseCase) *Client {
	return &Client{searchSvc: svc}
}

func fixtureEntries() []map[string]any {
	return []map[string]any{
		{
			"uid":              "faq-returns",
			"content_type_uid": "faq",
			"title":            "Return policy",
			"body":             "You can return any item within 30 days of delivery.",
			"tags":             []any{"returns", "refunds"},
		},
		{
			"uid":              "faq-shipping",
			"content_type_uid": "faq",
			"title":            "Shipping times",
			"body":             "Orders ship within two business days.",
		},
		{
			"uid":              "widget",
			"content_type_uid": "product",
			"title":            "Blue widget",
			"description":      map[string]any{"html": "<p>A sturdy widget.</p>"},
		},
	}
}

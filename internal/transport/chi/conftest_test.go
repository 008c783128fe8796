package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ctxsearch/internal/cache"
	domchat "github.com/kailas-cloud/ctxsearch/internal/domain/chat"
	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/domain/source"
	"github.com/kailas-cloud/ctxsearch/internal/repository/source/static"
	"github.com/kailas-cloud/ctxsearch/internal/score"
	chatuc "github.com/kailas-cloud/ctxsearch/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ctxsearch/internal/usecase/health"
	"github.com/kailas-cloud/ctxsearch/internal/usecase/match"
	searchuc "github.com/kailas-cloud/ctxsearch/internal/usecase/search"
)

// --- Mocks ---

type mockCompleter struct {
	content string
	deltas  []string
	err     error
}

func (m *mockCompleter) Complete(_ context.Context, _ []domchat.Message) (domchat.Completion, error) {
	if m.err != nil {
		return domchat.Completion{}, m.err
	}
	return domchat.Completion{Content: m.content, Model: "test-model", FinishReason: "stop"}, nil
}

func (m *mockCompleter) Stream(
	_ context.Context, _ []domchat.Message, onDelta func(string) error,
) (domchat.Completion, error) {
	if m.err != nil {
		return domchat.Completion{}, m.err
	}
	for _, d := range m.deltas {
		if err := onDelta(d); err != nil {
			return domchat.Completion{}, err
		}
	}
	return domchat.Completion{Content: m.content, Model: "test-model", FinishReason: "stop"}, nil
}

func (m *mockCompleter) Model() string { return "test-model" }

func (m *mockCompleter) Models(_ context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []string{"test-model", "other-model"}, nil
}

// failingSource reports a fixed readiness and fetch error.
type failingSource struct {
	ready bool
	err   error
}

func (f *failingSource) Ready() bool { return f.ready }

func (f *failingSource) FetchEntries(context.Context, source.Query) (source.Page, error) {
	return source.Page{}, f.err
}

func (f *failingSource) ListContentTypes(context.Context) ([]string, error) { return nil, f.err }

func (f *failingSource) HealthCheck(context.Context) error { return f.err }

// --- Fixtures ---

func testEntries() []entry.Entry {
	now := time.Now().Add(-24 * time.Hour)
	return []entry.Entry{
		entry.New("faq-returns", "faq", now, map[string]entry.Value{
			"title": entry.String("Return policy"),
			"body": entry.String("You can return any item within 30 days of delivery. " +
				"Refunds go back to the original payment method."),
			"tags": entry.List(entry.String("returns"), entry.String("refunds")),
		}),
		entry.New("widget", "product", now, map[string]entry.Value{
			"title":       entry.String("Blue widget"),
			"description": entry.HTML("<p>A sturdy <b>widget</b> for everyday use.</p>"),
		}),
	}
}

type testEnv struct {
	router http.Handler
	cache  *cache.Memory[result.Response]
	llm    *mockCompleter
}

func newTestEnv(src searchuc.Source, llm *mockCompleter) *testEnv {
	if src == nil {
		src = static.New(testEntries())
	}
	c := cache.NewMemory[result.Response](100, time.Minute)
	searchSvc := searchuc.New(src, match.New(score.New(), 2), c, searchuc.Config{UseCache: true, Threshold: 0.3})

	var (
		chatSvc *chatuc.Service
		models  ModelLister
	)
	if llm != nil {
		chatSvc = chatuc.New(llm, searchSvc)
		models = llm
	}

	var checker healthuc.Checker
	if hc, ok := src.(healthuc.Checker); ok {
		checker = hc
	}
	srv := NewServer(searchSvc, chatSvc, healthuc.New(checker, c, nil), models, zap.NewNop())

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	srv.Routes(r)
	return &testEnv{router: r, cache: c, llm: llm}
}

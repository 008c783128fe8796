package match

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ctxsearch/internal/domain"
	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/options"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/extract"
	"github.com/kailas-cloud/ctxsearch/internal/score"
)

// fixedScorer returns a preset score per entry id.
type fixedScorer struct {
	scores  map[string]float64
	panicOn string
	calls   atomic.Int32
}

func (f *fixedScorer) Explain(_ score.Query, e entry.Entry, _ extract.Document) score.Breakdown {
	f.calls.Add(1)
	if e.ID() == f.panicOn {
		panic("boom")
	}
	return score.Breakdown{Total: f.scores[e.ID()]}
}

func entries(ids ...string) []entry.Entry {
	out := make([]entry.Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, entry.New(id, "faq", time.Time{}, map[string]entry.Value{
			"title": entry.String("Entry " + id),
		}))
	}
	return out
}

func ids(results []result.Scored) []string {
	out := make([]string, 0, len(results))
	for i := range results {
		e := results[i].Entry()
		out = append(out, e.ID())
	}
	return out
}

func mustOpts(t *testing.T, threshold float64, max int, m mode.Mode) options.Match {
	t.Helper()
	o, err := options.New(threshold, max, true, nil, m)
	require.NoError(t, err)
	return o
}

func TestMatch_EmptyEntries(t *testing.T) {
	sc := &fixedScorer{}
	svc := New(sc, 2)

	got, err := svc.Match(context.Background(), "anything", nil, options.Default())

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, sc.calls.Load())
}

func TestMatch_FilterSortTruncate(t *testing.T) {
	sc := &fixedScorer{scores: map[string]float64{
		"a": 0.4, "b": 0.9, "c": 0.1, "d": 0.7, "e": 0.3,
	}}
	svc := New(sc, 3)

	got, err := svc.Match(context.Background(), "q", entries("a", "b", "c", "d", "e"), mustOpts(t, 0.3, 3, mode.Semantic))
	require.NoError(t, err)

	for i := range got {
		assert.GreaterOrEqual(t, got[i].Score(), 0.3)
		require.NotNil(t, got[i].Metadata())
	}
	assert.Equal(t, []string{"b", "d", "a"}, ids(got))
	assert.Equal(t, int32(5), sc.calls.Load())
}

func TestMatch_StableOnTies(t *testing.T) {
	sc := &fixedScorer{scores: map[string]float64{"x": 0.5, "y": 0.8, "z": 0.5, "w": 0.5}}
	svc := New(sc, 4)

	got, err := svc.Match(context.Background(), "q", entries("x", "y", "z", "w"), mustOpts(t, 0, 10, mode.Semantic))
	require.NoError(t, err)

	assert.Equal(t, []string{"y", "x", "z", "w"}, ids(got))
}

func TestMatch_ZeroScores(t *testing.T) {
	sc := &fixedScorer{scores: map[string]float64{"a": 0}}
	svc := New(sc, 1)

	got, err := svc.Match(context.Background(), "q", entries("a"), mustOpts(t, 0.3, 10, mode.Semantic))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.Match(context.Background(), "q", entries("a"), mustOpts(t, 0, 10, mode.Semantic))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMatch_PanicAbortsBatch(t *testing.T) {
	sc := &fixedScorer{scores: map[string]float64{"a": 0.9, "b": 0.9}, panicOn: "b"}
	svc := New(sc, 1)

	got, err := svc.Match(context.Background(), "q", entries("a", "b", "c"), options.Default())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrScoringFailed))
	assert.Nil(t, got)
}

func TestMatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := New(&fixedScorer{scores: map[string]float64{"a": 1}}, 1)
	got, err := svc.Match(ctx, "q", entries("a", "b"), options.Default())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domain.ErrScoringFailed)
	assert.Nil(t, got)
}

func TestMatch_NoMetadataWhenDisabled(t *testing.T) {
	sc := &fixedScorer{scores: map[string]float64{"a": 0.9}}
	o, err := options.New(0.3, 5, false, nil, mode.Semantic)
	require.NoError(t, err)

	got, err := New(sc, 1).Match(context.Background(), "q", entries("a"), o)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Metadata())
	assert.Equal(t, "Entry a", got[0].Text())
}

func TestMatch_RealScorer(t *testing.T) {
	now := time.Now()
	list := []entry.Entry{
		entry.New("faq-1", "faq", now, map[string]entry.Value{
			"title": entry.String("Product FAQ"),
			"body":  entry.String("Our return policy allows returns within 30 days of purchase."),
		}),
		entry.New("page-1", "page", now.AddDate(-3, 0, 0), map[string]entry.Value{
			"title": entry.String("About us"),
			"body":  entry.String("We are a small team of makers."),
		}),
	}

	got, err := New(score.New(), 2).Match(context.Background(), "return policy", list, mustOpts(t, 0.2, 10, mode.Semantic))
	require.NoError(t, err)
	require.NotEmpty(t, got)

	first := got[0].Entry()
	assert.Equal(t, "faq-1", first.ID())
	assert.Greater(t, got[0].Score(), 0.2)
}

func TestMatch_Fuzzy(t *testing.T) {
	list := []entry.Entry{
		entry.New("faq-1", "faq", time.Time{}, map[string]entry.Value{
			"title": entry.String("Return policy"),
			"body":  entry.String("Items can be returned within 30 days."),
		}),
		entry.New("blog-1", "blog_post", time.Time{}, map[string]entry.Value{
			"title": entry.String("Summer recipes"),
			"body":  entry.String("Grilled vegetables and lemonade."),
		}),
	}

	got, err := New(nil, 2).Match(context.Background(), "retrun polcy", list, mustOpts(t, 0.6, 10, mode.Fuzzy))
	require.NoError(t, err)
	require.Len(t, got, 1)

	first := got[0].Entry()
	assert.Equal(t, "faq-1", first.ID())
}

package match

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ctxsearch/internal/domain"
	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/options"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/extract"
	"github.com/kailas-cloud/ctxsearch/internal/logger"
	"github.com/kailas-cloud/ctxsearch/internal/metrics"
	"github.com/kailas-cloud/ctxsearch/internal/score"
)

// DefaultWorkers bounds concurrent scoring when no limit is configured.
const DefaultWorkers = 8

// Service ranks a batch of entries against a query.
type Service struct {
	scorer  Scorer
	workers int
}

// New creates a matcher. workers <= 0 falls back to DefaultWorkers.
func New(scorer Scorer, workers int) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{scorer: scorer, workers: workers}
}

type candidate struct {
	score float64
	doc   extract.Document
}

// Match scores every entry, keeps those at or above the threshold, and
// returns them best first (ties keep input order), capped at MaxResults.
//
// A failure in any entry aborts the whole batch: the error wraps
// domain.ErrScoringFailed (and the context error on cancellation) and no
// partial ranking is returned.
func (s *Service) Match(
	ctx context.Context, query string, entries []entry.Entry, opts options.Match,
) ([]result.Scored, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var (
		cands []candidate
		err   error
	)
	switch opts.Mode() {
	case mode.Fuzzy:
		cands, err = s.run(ctx, entries, func(_ entry.Entry, doc extract.Document) float64 {
			return fuzzyScore(query, composite(doc))
		})
	default:
		q := score.Prepare(query)
		cands, err = s.run(ctx, entries, func(e entry.Entry, doc extract.Document) float64 {
			return s.scorer.Explain(q, e, doc).Total
		})
	}
	if err != nil {
		reason := "panic"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			reason = "cancelled"
		}
		metrics.MatchFailuresTotal.WithLabelValues(string(opts.Mode()), reason).Inc()
		logger.FromContext(ctx).Warn("Matching aborted",
			zap.String("mode", string(opts.Mode())),
			zap.Int("entries", len(entries)),
			zap.Error(err),
		)
		return nil, err
	}

	return rank(entries, cands, opts), nil
}

// run extracts and scores entries on a bounded worker pool.
func (s *Service) run(
	ctx context.Context, entries []entry.Entry,
	scoreFn func(entry.Entry, extract.Document) float64,
) ([]candidate, error) {
	cands := make([]candidate, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range entries {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: entry %s: %v", domain.ErrScoringFailed, entries[i].ID(), r)
				}
			}()
			if cerr := gctx.Err(); cerr != nil {
				return fmt.Errorf("%w: %w", domain.ErrScoringFailed, cerr)
			}
			doc := extract.Extract(entries[i])
			cands[i] = candidate{score: scoreFn(entries[i], doc), doc: doc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped by the worker
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrScoringFailed, err)
	}
	return cands, nil
}

func rank(entries []entry.Entry, cands []candidate, opts options.Match) []result.Scored {
	threshold := opts.Threshold()
	out := make([]result.Scored, 0, len(entries))
	for i, c := range cands {
		// zero scores are dropped unless the caller explicitly asked for everything
		if c.score < threshold || (c.score == 0 && threshold > 0) {
			continue
		}
		var md *entry.Metadata
		if opts.IncludeMetadata() {
			m := c.doc.Metadata
			md = &m
		}
		out = append(out, result.New(entries[i], c.score, c.doc.SearchableText, md))
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score() > out[b].Score()
	})
	if len(out) > opts.MaxResults() {
		out = out[:opts.MaxResults()]
	}
	return out
}

// Command ctxquery runs a search against a fixture file and prints the ranked
// results and the rendered LLM context block.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ctxsearch/internal/cache"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/ctxsearch/internal/logger"
	"github.com/kailas-cloud/ctxsearch/internal/repository/source/static"
	"github.com/kailas-cloud/ctxsearch/internal/score"
	"github.com/kailas-cloud/ctxsearch/internal/usecase/match"
	searchuc "github.com/kailas-cloud/ctxsearch/internal/usecase/search"
)

type flags struct {
	fixture   string
	query     string
	types     string
	max       int
	threshold float64
	fuzzy     bool
	length    int
	verbose   bool
}

func main() {
	var f flags
	flag.StringVar(&f.fixture, "fixture", "config/fixtures/entries.yaml", "YAML or JSON fixture with entries")
	flag.StringVar(&f.query, "query", "", "search query (required)")
	flag.StringVar(&f.types, "types", "", "comma-separated content types")
	flag.IntVar(&f.max, "max", 5, "maximum results")
	flag.Float64Var(&f.threshold, "threshold", 0.3, "relevance threshold")
	flag.BoolVar(&f.fuzzy, "fuzzy", false, "use fuzzy matching instead of the weighted scorer")
	flag.IntVar(&f.length, "length", 2000, "context block length")
	flag.BoolVar(&f.verbose, "v", false, "debug logging")
	flag.Parse()

	if strings.TrimSpace(f.query) == "" && flag.NArg() > 0 {
		f.query = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(f.query) == "" {
		fmt.Fprintln(os.Stderr, "usage: ctxquery -query <text> [-fixture path] [-types faq,product]")
		os.Exit(2)
	}

	if err := run(context.Background(), os.Stdout, f); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, f flags) error {
	level := "warn"
	if f.verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger("local", level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	ctx = logpkg.ContextWithLogger(ctx, logger.With(zap.String("request_id", uuid.NewString())))

	src, err := static.Load(f.fixture)
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}

	svc := searchuc.New(src, match.New(score.New(), 0), cache.NewMemory[result.Response](16, time.Minute), searchuc.Config{
		MaxResults: f.max,
		Threshold:  f.threshold,
		Mode:       mode.FromFlag(!f.fuzzy),
	})

	var types []string
	for t := range strings.SplitSeq(f.types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	outcome := svc.Search(ctx, f.query, searchuc.Options{ContentTypes: types})
	if !outcome.Success {
		return fmt.Errorf("search failed: %s", outcome.Error)
	}

	printResults(out, f.query, outcome)
	fmt.Fprintln(out)
	fmt.Fprintln(out, svc.FormatForPrompt(outcome.Data.Results(), f.length))
	return nil
}

func printResults(out io.Writer, query string, o searchuc.Outcome) {
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	results := o.Data.Results()

	bold.Fprintf(out, "%d result(s) for %q", len(results), query)
	dim.Fprintf(out, " in %s\n", o.ExecutionTime.Round(time.Microsecond))
	if o.Data.Error() != "" {
		color.New(color.FgYellow).Fprintf(out, "warning: %s\n", o.Data.Error())
	}

	for i := range results {
		r := &results[i]
		e := r.Entry()
		title := e.ID()
		if md := r.Metadata(); md != nil && md.Title != "" {
			title = md.Title
		}
		fmt.Fprintf(out, "%2d. ", i+1)
		scoreColor(r.Score()).Fprintf(out, "%.3f", r.Score())
		fmt.Fprintf(out, "  %s ", title)
		dim.Fprintf(out, "[%s/%s]\n", r.ContentType(), e.ID())
	}
}

func scoreColor(s float64) *color.Color {
	switch {
	case s >= 0.7:
		return color.New(color.FgGreen)
	case s >= 0.5:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

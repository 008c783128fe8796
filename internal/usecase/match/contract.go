package match

import (
	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/extract"
	"github.com/kailas-cloud/ctxsearch/internal/score"
)

// Scorer rates one extracted entry against a prepared query.
type Scorer interface {
	Explain(q score.Query, e entry.Entry, doc extract.Document) score.Breakdown
}

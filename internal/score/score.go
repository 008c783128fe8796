// Package score computes the relevance of a single entry to a query.
//
// The final score combines four signals, each in [0,1]:
//
//	lexical    Jaccard overlap of stemmed query and document tokens, doubled
//	metadata   keyword coverage of title (0.5), tags (0.3), description (0.2)
//	structural recency (0.3) and content-type affinity (0.7)
//	semantic   exact query-word hits, rewarded for nearby query words
//
// combined as sqrt(0.4·lexical + 0.2·metadata + 0.2·structural + 0.2·semantic).
package score

import (
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/extract"
	"github.com/kailas-cloud/ctxsearch/internal/textproc"
)

// Signal weights.
const (
	WeightLexical    = 0.4
	WeightMetadata   = 0.2
	WeightStructural = 0.2
	WeightSemantic   = 0.2

	lexicalBoost = 2.0

	weightTitle       = 0.5
	weightTags        = 0.3
	weightDescription = 0.2

	weightRecency  = 0.3
	weightAffinity = 0.7

	// ProximityWindow is the number of positions on each side of a hit
	// inspected for other query words.
	ProximityWindow = 5
	proximityBonus  = 0.5

	recencyHorizon  = 365 * 24 * time.Hour
	defaultAffinity = 0.5
)

// TypeAffinity is the structural prior per content type.
var TypeAffinity = map[string]float64{
	"faq":       0.9,
	"article":   0.8,
	"blog_post": 0.8,
	"product":   0.7,
	"page":      0.6,
}

// Breakdown holds the per-signal scores and their combination.
type Breakdown struct {
	Lexical    float64
	Metadata   float64
	Structural float64
	Semantic   float64
	Total      float64
}

// Query is a query preprocessed once and reused across entries.
type Query struct {
	tokens   map[string]struct{}
	keywords []string
	words    []string
	wordSet  map[string]struct{}
}

// Prepare tokenises, stems and splits q.
func Prepare(q string) Query {
	words := textproc.Words(q)
	return Query{
		tokens:   textproc.Set(textproc.Stems(q)),
		keywords: textproc.Unique(textproc.Keywords(q)),
		words:    words,
		wordSet:  textproc.Set(words),
	}
}

// Empty reports whether the query has no scorable terms.
func (q Query) Empty() bool { return len(q.tokens) == 0 || len(q.words) == 0 }

// Scorer is stateless apart from its clock, which drives recency.
type Scorer struct {
	now func() time.Time
}

// New creates a Scorer using the wall clock.
func New() *Scorer {
	return &Scorer{now: time.Now}
}

// NewWithClock creates a Scorer with a fixed time source.
func NewWithClock(now func() time.Time) *Scorer {
	return &Scorer{now: now}
}

// Score returns the combined relevance of e to query in [0,1].
func (s *Scorer) Score(query string, e entry.Entry, doc extract.Document) float64 {
	return s.Explain(Prepare(query), e, doc).Total
}

// Explain scores e against a prepared query and reports every signal.
// A query without scorable terms scores 0 everywhere.
func (s *Scorer) Explain(q Query, e entry.Entry, doc extract.Document) Breakdown {
	if q.Empty() {
		return Breakdown{}
	}
	b := Breakdown{
		Lexical:    lexical(q, doc),
		Metadata:   metadata(q, doc.Metadata),
		Structural: s.structural(e),
		Semantic:   semantic(q, doc),
	}
	sum := WeightLexical*b.Lexical + WeightMetadata*b.Metadata +
		WeightStructural*b.Structural + WeightSemantic*b.Semantic
	b.Total = clamp(math.Sqrt(sum))
	return b
}

func lexical(q Query, doc extract.Document) float64 {
	docTokens := textproc.Set(textproc.Stems(doc.SearchableText))
	if len(docTokens) == 0 {
		return 0
	}
	inter := 0
	for t := range q.tokens {
		if _, ok := docTokens[t]; ok {
			inter++
		}
	}
	union := len(q.tokens) + len(docTokens) - inter
	return clamp(lexicalBoost * float64(inter) / float64(union))
}

func metadata(q Query, md entry.Metadata) float64 {
	if len(q.keywords) == 0 {
		return 0
	}
	title := coverage(q.keywords, md.Title)
	tags := coverage(q.keywords, strings.Join(md.Tags, " "))
	desc := coverage(q.keywords, md.Description)
	return clamp(weightTitle*title + weightTags*tags + weightDescription*desc)
}

// coverage is the fraction of keywords present among the stems of field.
func coverage(keywords []string, field string) float64 {
	if field == "" {
		return 0
	}
	stems := textproc.Set(textproc.Stems(field))
	hits := 0
	for _, k := range keywords {
		if _, ok := stems[k]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func (s *Scorer) structural(e entry.Entry) float64 {
	recency := 0.0
	if ts := e.UpdatedAt(); !ts.IsZero() {
		age := s.now().Sub(ts)
		recency = clamp(1 - float64(age)/float64(recencyHorizon))
	}
	affinity, ok := TypeAffinity[strings.ToLower(e.ContentType())]
	if !ok {
		affinity = defaultAffinity
	}
	return clamp(weightRecency*recency + weightAffinity*affinity)
}

func semantic(q Query, doc extract.Document) float64 {
	docWords := textproc.Words(doc.SearchableText)
	if len(docWords) == 0 {
		return 0
	}
	n := float64(len(q.words))
	acc := 0.0
	for _, qw := range q.words {
		for j, dw := range docWords {
			if dw != qw {
				continue
			}
			near := 0
			lo := max(0, j-ProximityWindow)
			hi := min(len(docWords)-1, j+ProximityWindow)
			for k := lo; k <= hi; k++ {
				if k == j {
					continue
				}
				if _, ok := q.wordSet[docWords[k]]; ok {
					near++
				}
			}
			acc += (1 + proximityBonus*float64(near)) / n
			if acc >= 1 {
				return 1
			}
		}
	}
	return clamp(acc)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package options

import (
	"fmt"
	"maps"

	"github.com/kailas-cloud/ctxsearch/internal/domain/search/mode"
)

// Matching defaults.
const (
	DefaultThreshold  = 0.3
	DefaultMaxResults = 10
	MaxMaxResults     = 100
)

// DefaultFieldBoosts returns the default per-field weights.
func DefaultFieldBoosts() map[string]float64 {
	return map[string]float64{
		"title":       2.0,
		"description": 1.5,
		"tags":        1.3,
		"body":        1.0,
	}
}

// Match holds validated matching parameters.
type Match struct {
	threshold       float64
	maxResults      int
	includeMetadata bool
	fieldBoosts     map[string]float64
	mode            mode.Mode
}

// New validates and normalizes matching parameters.
// Zero maxResults, nil boosts and empty mode fall back to defaults.
// threshold must lie in [0,1]; boosts must be positive.
func New(threshold float64, maxResults int, includeMetadata bool, boosts map[string]float64, m mode.Mode) (Match, error) {
	if threshold < 0 || threshold > 1 {
		return Match{}, fmt.Errorf("relevance threshold must be between 0 and 1")
	}
	if maxResults < 0 {
		return Match{}, fmt.Errorf("max results must be positive")
	}
	if maxResults == 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > MaxMaxResults {
		maxResults = MaxMaxResults
	}
	if m == "" {
		m = mode.Semantic
	}
	if !m.IsValid() {
		return Match{}, fmt.Errorf("invalid match mode: %q", m)
	}

	merged := DefaultFieldBoosts()
	for field, w := range boosts {
		if w <= 0 {
			return Match{}, fmt.Errorf("field boost for %q must be positive", field)
		}
		merged[field] = w
	}

	return Match{
		threshold:       threshold,
		maxResults:      maxResults,
		includeMetadata: includeMetadata,
		fieldBoosts:     merged,
		mode:            m,
	}, nil
}

// Default returns the default options: threshold 0.3, 10 results, metadata on, semantic mode.
func Default() Match {
	return Match{
		threshold:       DefaultThreshold,
		maxResults:      DefaultMaxResults,
		includeMetadata: true,
		fieldBoosts:     DefaultFieldBoosts(),
		mode:            mode.Semantic,
	}
}

// Threshold returns the minimum score a result must reach.
func (o *Match) Threshold() float64 { return o.threshold }

// MaxResults returns the result cap.
func (o *Match) MaxResults() int { return o.maxResults }

// IncludeMetadata reports whether results carry display metadata.
func (o *Match) IncludeMetadata() bool { return o.includeMetadata }

// FieldBoosts returns a copy of the per-field weights.
func (o *Match) FieldBoosts() map[string]float64 { return maps.Clone(o.fieldBoosts) }

// Mode returns the matching strategy.
func (o *Match) Mode() mode.Mode { return o.mode }

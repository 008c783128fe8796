package result

import (
	"time"

	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
)

// Scored is a single ranked entry.
type Scored struct {
	entry       entry.Entry
	score       float64
	contentType string
	text        string
	metadata    *entry.Metadata
}

// New creates a scored result. metadata may be nil when not requested.
func New(e entry.Entry, score float64, text string, metadata *entry.Metadata) Scored {
	return Scored{
		entry:       e,
		score:       score,
		contentType: e.ContentType(),
		text:        text,
		metadata:    metadata,
	}
}

// Entry returns the matched entry.
func (r *Scored) Entry() entry.Entry { return r.entry }

// Score returns the relevance score in [0,1].
func (r *Scored) Score() float64 { return r.score }

// ContentType returns the entry content type.
func (r *Scored) ContentType() string { return r.contentType }

// Text returns the extracted searchable text.
func (r *Scored) Text() string { return r.text }

// Metadata returns display metadata, nil when not requested.
func (r *Scored) Metadata() *entry.Metadata { return r.metadata }

// Response is the outcome of one search.
type Response struct {
	results       []Scored
	totalCount    int
	executionTime time.Duration
	cacheHit      bool
	errMsg        string
}

// NewResponse creates a search response.
func NewResponse(results []Scored, totalCount int, executionTime time.Duration) Response {
	return Response{results: results, totalCount: totalCount, executionTime: executionTime}
}

// Results returns the ranked results.
func (r *Response) Results() []Scored { return r.results }

// TotalCount returns the number of matched results.
func (r *Response) TotalCount() int { return r.totalCount }

// ExecutionTime returns how long the search took.
func (r *Response) ExecutionTime() time.Duration { return r.executionTime }

// CacheHit reports whether the response was served from cache.
func (r *Response) CacheHit() bool { return r.cacheHit }

// Error returns a non-fatal failure message, empty on success.
func (r *Response) Error() string { return r.errMsg }

// WithCacheHit returns a copy flagged as served from cache.
func (r Response) WithCacheHit(hit bool) Response {
	r.cacheHit = hit
	return r
}

// WithError returns a copy carrying a non-fatal failure message.
func (r Response) WithError(msg string) Response {
	r.errMsg = msg
	return r
}

package chi

import (
	"time"

	domchat "github.com/kailas-cloud/ctxsearch/internal/domain/chat"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ctxsearch/internal/format"
	searchuc "github.com/kailas-cloud/ctxsearch/internal/usecase/search"
)

// ErrorCode is a machine-readable error kind.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodePayloadTooLarge     ErrorCode = "payload_too_large"
	ErrorCodeSourceNotConfigured ErrorCode = "source_not_configured"
	ErrorCodeSourceUnavailable   ErrorCode = "source_unavailable"
	ErrorCodeLLMProviderError    ErrorCode = "llm_provider_error"
	ErrorCodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// Request limits.
const (
	maxChatBodyBytes    = 10 << 10
	maxSearchBodyBytes  = 64 << 10
	minContextLength    = 500
	maxContextLength    = 4000
	maxResultsPerSearch = 100
)

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query        string   `json:"query"`
	ContentTypes []string `json:"content_types,omitempty"`
	MaxResults   *int     `json:"max_results,omitempty"`
	UseCache     *bool    `json:"use_cache,omitempty"`
	Locale       string   `json:"locale,omitempty"`
}

// ContextRequest is the body of POST /api/v1/context.
type ContextRequest struct {
	Query        string   `json:"query"`
	ContentTypes []string `json:"content_types,omitempty"`
	MaxResults   *int     `json:"max_results,omitempty"`
	MaxLength    *int     `json:"max_length,omitempty"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message          string   `json:"message"`
	Stream           *bool    `json:"stream,omitempty"`
	UseContent       *bool    `json:"use_content,omitempty"`
	ContentTypes     []string `json:"content_types,omitempty"`
	MaxContextLength *int     `json:"max_context_length,omitempty"`
}

// ResultItem is one ranked entry.
type ResultItem struct {
	ID          string          `json:"id"`
	ContentType string          `json:"content_type"`
	Score       float64         `json:"score"`
	Excerpt     string          `json:"excerpt"`
	Metadata    *ResultMetadata `json:"metadata,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	Entry       map[string]any  `json:"entry"`
}

// ResultMetadata is the display metadata of a result.
type ResultMetadata struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// SearchData is the ranking part of a search response.
type SearchData struct {
	Results         []ResultItem `json:"results"`
	TotalCount      int          `json:"total_count"`
	ExecutionTimeMs int64        `json:"execution_time_ms"`
	CacheHit        bool         `json:"cache_hit"`
	Error           string       `json:"error,omitempty"`
}

// SearchResponse is the body of a successful POST /api/v1/search.
type SearchResponse struct {
	Success         bool        `json:"success"`
	Data            *SearchData `json:"data,omitempty"`
	Cached          bool        `json:"cached"`
	ExecutionTimeMs int64       `json:"execution_time_ms"`
	Query           string      `json:"query"`
	RequestID       string      `json:"request_id,omitempty"`
}

// ContextResponse is the body of POST /api/v1/context.
type ContextResponse struct {
	Context      string `json:"context"`
	ResultsCount int    `json:"results_count"`
	Cached       bool   `json:"cached"`
}

// ChatResponse is the body of a non-streaming POST /api/v1/chat.
type ChatResponse struct {
	ID                  string          `json:"id"`
	Message             domchat.Message `json:"message"`
	Model               string          `json:"model"`
	Usage               domchat.Usage   `json:"usage"`
	EnhancedWithContent bool            `json:"enhanced_with_content"`
	ContentResults      int             `json:"content_results"`
}

// StreamChunk is the data payload of one SSE event.
type StreamChunk struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"` // content, done, error
	Content  string         `json:"content,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Stream chunk types.
const (
	chunkContent = "content"
	chunkDone    = "done"
	chunkError   = "error"
)

func searchDataFromResponse(resp *result.Response) *SearchData {
	if resp == nil {
		return nil
	}
	items := make([]ResultItem, 0, len(resp.Results()))
	for _, r := range resp.Results() {
		items = append(items, resultItem(&r))
	}
	return &SearchData{
		Results:         items,
		TotalCount:      resp.TotalCount(),
		ExecutionTimeMs: resp.ExecutionTime().Milliseconds(),
		CacheHit:        resp.CacheHit(),
		Error:           resp.Error(),
	}
}

func resultItem(r *result.Scored) ResultItem {
	e := r.Entry()
	item := ResultItem{
		ID:          e.ID(),
		ContentType: r.ContentType(),
		Score:       r.Score(),
		Excerpt:     format.CreateExcerpt(r.Text(), format.ExcerptLength),
		Entry:       e.ToMap(),
	}
	if ts := e.UpdatedAt(); !ts.IsZero() {
		item.UpdatedAt = &ts
	}
	if md := r.Metadata(); md != nil {
		item.Metadata = &ResultMetadata{
			Title:       md.Title,
			Description: md.Description,
			Tags:        md.Tags,
			Category:    md.Category,
		}
	}
	return item
}

func searchResponse(out *searchuc.Outcome, query, requestID string) SearchResponse {
	return SearchResponse{
		Success:         out.Success,
		Data:            searchDataFromResponse(out.Data),
		Cached:          out.Cached,
		ExecutionTimeMs: out.ExecutionTime.Milliseconds(),
		Query:           query,
		RequestID:       requestID,
	}
}

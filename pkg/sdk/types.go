package ctxsearch

import "time"

// Result is one ranked entry.
type Result struct {
	ID          string
	ContentType string
	Score       float64
	Title       string
	Description string
	Tags        []string
	Category    string
	Excerpt     string
	UpdatedAt   time.Time
	// Entry is the CMS-shaped payload of the matched entry.
	Entry map[string]any
}

// SearchResponse is the outcome of a successful search.
type SearchResponse struct {
	Results    []Result
	TotalCount int
	Cached     bool
	Duration   time.Duration
	// Warning is set when scoring was aborted and Results is empty.
	Warning string
}

// Role of a conversation message author.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// CacheStats reports result cache counters.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Size    int
	HitRate float64
}

// Stats summarises the client state.
type Stats struct {
	Configured bool
	Cache      CacheStats
}

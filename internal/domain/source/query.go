package source

import "github.com/kailas-cloud/ctxsearch/internal/domain/entry"

// Query asks a content source for candidate entries.
type Query struct {
	Text         string
	ContentTypes []string
	Limit        int
	Locale       string
}

// Page is what a content source returned for a Query.
type Page struct {
	Entries    []entry.Entry
	TotalCount int
}

package search

import (
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ctxsearch/internal/textproc"
)

// maxKeyQuery caps the query segment of a cache key.
const maxKeyQuery = 50

// BuildCacheKey derives the cache key of a search. Content type order does
// not matter; the query is folded and reduced to [a-z0-9_].
func BuildCacheKey(prefix, query string, contentTypes []string, maxResults int, locale string) string {
	types := slices.Clone(contentTypes)
	slices.Sort(types)
	return prefix + strings.Join([]string{
		"mcp",
		"content_search",
		textproc.KeySegment(query, maxKeyQuery),
		strings.Join(types, ","),
		strconv.Itoa(maxResults),
		locale,
	}, ":")
}

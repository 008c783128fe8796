package ctxsearch

import "github.com/kailas-cloud/ctxsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest      = domain.ErrInvalidRequest
	ErrSourceNotConfigured = domain.ErrSourceNotConfigured
	ErrSourceUnavailable   = domain.ErrSourceUnavailable
	ErrCacheUnavailable    = domain.ErrCacheUnavailable
)

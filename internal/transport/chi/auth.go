package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// apiKeyHeader carries the key for widget clients that cannot set Authorization.
const apiKeyHeader = "X-API-Key"

// exemptPaths bypass authentication.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// APIKeyMiddleware accepts a key as "Authorization: Bearer <key>" or in the
// X-API-Key header. CORS preflight requests pass untouched. An empty key
// list disables authentication.
func APIKeyMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key, msg := presentedKey(r)
			if msg != "" {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, msg)
				return
			}
			if !matchKey(keys, key) {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// presentedKey extracts the client key, or a message explaining why there is none.
func presentedKey(r *http.Request) (string, string) {
	if k := r.Header.Get(apiKeyHeader); k != "" {
		return k, ""
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing api key"
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "authorization header must use Bearer scheme"
	}
	return token, ""
}

// matchKey compares against every key in constant time.
func matchKey(keys [][]byte, presented string) bool {
	p := []byte(presented)
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, p)
	}
	return found == 1
}

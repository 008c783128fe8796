package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyMiddleware_Disabled(t *testing.T) {
	for _, keys := range [][]string{nil, {"", ""}} {
		handler := APIKeyMiddleware(keys)(okHandler())

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/search", http.NoBody))

		assert.Equal(t, http.StatusOK, rr.Code, "keys %q", keys)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	handler := APIKeyMiddleware([]string{"key1", "key2"})(okHandler())

	tests := []struct {
		name    string
		method  string
		path    string
		headers map[string]string
		want    int
		wantMsg string
	}{
		{name: "missing key", path: "/api/v1/search", want: http.StatusUnauthorized, wantMsg: "missing api key"},
		{
			name: "basic scheme", path: "/api/v1/search",
			headers: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			want:    http.StatusUnauthorized, wantMsg: "authorization header must use Bearer scheme",
		},
		{
			name: "empty bearer", path: "/api/v1/search",
			headers: map[string]string{"Authorization": "Bearer "},
			want:    http.StatusUnauthorized, wantMsg: "authorization header must use Bearer scheme",
		},
		{
			name: "wrong key", path: "/api/v1/search",
			headers: map[string]string{"Authorization": "Bearer nope"},
			want:    http.StatusUnauthorized, wantMsg: "invalid api key",
		},
		{
			name: "key prefix is not a key", path: "/api/v1/search",
			headers: map[string]string{"X-API-Key": "key"},
			want:    http.StatusUnauthorized, wantMsg: "invalid api key",
		},
		{name: "bearer key1", path: "/api/v1/search", headers: map[string]string{"Authorization": "Bearer key1"}, want: http.StatusOK},
		{name: "lowercase scheme", path: "/api/v1/chat", headers: map[string]string{"Authorization": "bearer key2"}, want: http.StatusOK},
		{name: "widget header", path: "/api/v1/chat", headers: map[string]string{"X-API-Key": "key2"}, want: http.StatusOK},
		{name: "health exempt", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "metrics exempt", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, path: "/api/v1/chat", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodPost
			}
			req := httptest.NewRequest(method, tt.path, http.NoBody)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			require.Equal(t, tt.want, rr.Code)
			if tt.wantMsg == "" {
				return
			}
			var errResp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
			assert.Equal(t, ErrorCodeUnauthorized, errResp.Code)
			assert.Equal(t, tt.wantMsg, errResp.Message)
		})
	}
}

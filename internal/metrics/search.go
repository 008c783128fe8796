package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxsearch",
			Name:      "search_requests_total",
			Help:      "Total number of content searches",
		},
		[]string{"status"}, // "ok" / "cached" / "error" / "not_configured"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ctxsearch",
			Name:      "search_duration_seconds",
			Help:      "Content search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"cached"},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ctxsearch",
			Name:      "search_results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxsearch",
			Name:      "cache_total",
			Help:      "Search cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	MatchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxsearch",
			Name:      "match_failures_total",
			Help:      "Matching runs aborted by a scoring failure or cancellation",
		},
		[]string{"mode", "reason"},
	)

	SourceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxsearch",
			Name:      "source_requests_total",
			Help:      "Requests sent to the content source",
		},
		[]string{"operation", "status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(MatchFailuresTotal)
	prometheus.MustRegister(SourceRequestsTotal)
	searchMetricsRegistered = true
}

// ABOUTME: Prometheus metrics for the portal
// ABOUTME: Counts upstream calls, cache lookups, data sources and served requests

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequestsTotal counts calls to the accreditation API.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acreditaciones",
			Name:      "upstream_requests_total",
			Help:      "Total number of requests sent to the accreditation API",
		},
		[]string{"method", "path", "outcome"},
	)

	// UpstreamDuration measures upstream call latency.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "acreditaciones",
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of accreditation API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CacheLookupsTotal counts response cache reads by result.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acreditaciones",
			Name:      "cache_lookups_total",
			Help:      "Total number of response cache lookups",
		},
		[]string{"result"},
	)

	// ResolutionsTotal counts which tier served a data kind.
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acreditaciones",
			Name:      "resolutions_total",
			Help:      "Total number of page data resolutions by kind and source",
		},
		[]string{"kind", "source"},
	)

	// HTTPRequestsTotal counts portal requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acreditaciones",
			Name:      "http_requests_total",
			Help:      "Total number of portal HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acreditaciones",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by rate limiting",
		},
		[]string{"route"},
	)
)

// RecordUpstream records one upstream call.
func RecordUpstream(method, path, outcome string, seconds float64) {
	UpstreamRequestsTotal.WithLabelValues(method, path, outcome).Inc()
	UpstreamDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordCacheLookup records a cache read as "hit", "miss" or "error".
func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordResolution records the tier ("cache", "live", "offline", "fallback") that
// answered a data kind.
func RecordResolution(kind, source string) {
	ResolutionsTotal.WithLabelValues(kind, source).Inc()
}

// RecordHTTPRequest records one served portal request.
func RecordHTTPRequest(method, route string, status int) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordRateLimited records a request rejected on route.
func RecordRateLimited(route string) {
	RateLimitedTotal.WithLabelValues(route).Inc()
}

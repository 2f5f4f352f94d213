// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Recipe writes by operation (create, update, delete) and outcome
	// (ok, invalid, failed)
	RecipeWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipe_writes_total",
			Help: "Recipe write operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	MembershipConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_membership_conflicts_total",
			Help: "Favorite and shopping cart requests rejected as conflicts",
		},
		[]string{"kind", "operation"},
	)

	ShortLinkCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_short_link_collisions_total",
			Help: "Short link tokens regenerated after a collision",
		},
	)

	ShortLinkCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_short_link_cache_hits_total",
			Help: "Short link resolutions served from Redis",
		},
	)
)

// RecordAPIRequest records one served HTTP request
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRecipeWrite records the outcome of a recipe write
func RecordRecipeWrite(operation, outcome string) {
	RecipeWrites.WithLabelValues(operation, outcome).Inc()
}

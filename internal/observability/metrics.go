package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecipesCreated counts successfully published recipes.
	RecipesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipeshare_recipes_created_total",
		Help: "Total number of recipes created",
	})

	// RecipeMutations counts author-gated mutations by operation and outcome.
	RecipeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeshare_recipe_mutations_total",
		Help: "Recipe update/delete/image attempts by outcome",
	}, []string{"operation", "outcome"})

	// RatingsSubmitted counts rating upserts; outcome is "created" or "updated".
	RatingsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeshare_ratings_submitted_total",
		Help: "Total number of ratings submitted by outcome",
	}, []string{"outcome"})

	// CacheRequests counts cache-aside lookups by keyspace and result.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeshare_cache_requests_total",
		Help: "Cache lookups by keyspace and result (hit, miss, error)",
	}, []string{"keyspace", "result"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeshare_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recipeshare_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ActiveWebSockets is the number of connected live-feed clients.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recipeshare_websocket_connections",
		Help: "Number of active live-feed WebSocket connections",
	})

	// WebSocketBackpressureDrops counts events dropped because a client buffer was full or closed.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeshare_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// EventsPublished counts recipe events handed to the notifier by type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeshare_events_published_total",
		Help: "Recipe events published by type",
	}, []string{"event_type"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

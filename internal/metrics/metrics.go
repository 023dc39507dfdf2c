package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parley_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	RoomListings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_room_listings_total",
			Help: "Total room listing calls",
		},
	)

	RoomListingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parley_room_listing_duration_seconds",
			Help:    "Room listing duration including bulk enrichment",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_rooms_created_total",
			Help: "Total rooms created",
		},
	)

	RoomJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_room_joins_total",
			Help: "Total room join attempts",
		},
		[]string{"outcome"}, // "joined", "already_member", "denied", "not_found"
	)

	ReadReceiptsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_read_receipts_applied_total",
			Help: "Total messages marked read",
		},
	)

	// Degradation metrics
	DegradedBulkLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_degraded_bulk_lookups_total",
			Help: "Bulk lookups that failed and degraded to empty results",
		},
		[]string{"lookup"}, // "users" or "message_counts"
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_event_publish_failures_total",
			Help: "Best-effort event publishes that failed",
		},
		[]string{"kind"},
	)
)

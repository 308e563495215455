// Package metrics defines the Prometheus collectors exported by herostats.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts outbound game API calls by endpoint and result.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herostats_api_requests_total",
			Help: "Outbound game API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "herostats_api_request_duration_seconds",
			Help:    "Outbound game API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "herostats_ratelimit_wait_seconds",
			Help:    "Time spent blocked on the API rate limiter",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 5, 10, 30, 60},
		},
	)

	// CollectorPlayers counts processed players by outcome
	// (completed, failed_marked_completed).
	CollectorPlayers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herostats_collector_players_total",
			Help: "Players processed by the match collector",
		},
		[]string{"outcome"},
	)

	// CollectorMatches counts matches seen by the collector by outcome
	// (inserted, skipped, filtered).
	CollectorMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herostats_collector_matches_total",
			Help: "Matches seen by the match collector",
		},
		[]string{"outcome"},
	)

	CollectorParticipants = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "herostats_collector_participants_total",
			Help: "Match participant rows written",
		},
	)

	MalformedMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "herostats_collector_malformed_matches_total",
			Help: "Matches stored with a participant count other than twelve",
		},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "herostats_analysis_duration_seconds",
			Help:    "Duration of one analyzer run",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"analyzer"},
	)

	HeroesAnalyzed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "herostats_heroes_analyzed_total",
			Help: "Heroes processed by the analyzers by result",
		},
		[]string{"analyzer", "result"},
	)
)

// HTTPRequests counts read API requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "herostats_http_requests_total",
		Help: "Read API requests by route and status",
	},
	[]string{"route", "status"},
)

// Package metrics defines Prometheus metrics for the lineage server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lineage_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lineage_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lineage_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lineage_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	RoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lineage_rounds_total",
			Help: "Traversal rounds executed, by phase",
		},
		[]string{"phase"},
	)

	RoundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lineage_round_duration_seconds",
			Help:    "Wall time of one traversal round including its aggregate reads",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
		[]string{"phase"},
	)

	FrontierSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lineage_frontier_size",
			Help:    "Frontier size observed after each round",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		},
		[]string{"phase"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lineage_runs_total",
			Help: "Traversal runs, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lineage_run_duration_seconds",
			Help:    "Wall time of a traversal run",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 16),
		},
		[]string{"kind"},
	)

	ActiveRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lineage_active_runs",
			Help: "Traversal runs currently holding a workspace",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lineage_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	EdgeCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lineage_edges_total",
			Help: "Edge relation size as of the last count",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, RequestsInFlight, ErrorsTotal,
		RoundsTotal, RoundDuration, FrontierSize,
		RunsTotal, RunDuration, ActiveRuns,
		WSConnections, EdgeCount,
	)
}

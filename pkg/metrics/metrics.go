package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OptimizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_optimizations_total",
			Help: "Total number of roster optimizations by objective mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	SolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fpl_solve_duration_seconds",
			Help:    "Duration of exact roster solves in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"mode"},
	)

	SolverNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fpl_solver_nodes",
			Help:    "Relaxations solved per optimization",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	GameweekRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_gameweek_runs_total",
			Help: "Total number of gameweek pipeline runs",
		},
		[]string{"method", "strategy", "outcome"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_upstream_requests_total",
			Help: "Requests made to the FPL API by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_cache_lookups_total",
			Help: "Cache lookups by keyspace and result",
		},
		[]string{"keyspace", "result"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fpl_websocket_clients",
			Help: "Number of connected run event subscribers",
		},
	)
)

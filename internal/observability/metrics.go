// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Optimization metrics
	OptimizationsTotal  *prometheus.CounterVec
	OptimizationSeconds *prometheus.HistogramVec
	DegradedFallbacks   *prometheus.CounterVec
	DataQualityWarnings *prometheus.CounterVec

	// Rebalancing metrics
	PlansGenerated  prometheus.Counter
	TradesPlanned   prometheus.Counter
	PlannedTurnover prometheus.Histogram

	// Market data cache metrics
	SnapshotCacheHits      prometheus.Counter
	SnapshotCacheMisses    prometheus.Counter
	SnapshotCacheRefreshes prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulOptimization prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pollen_optimizer"
	}

	return &Metrics{
		OptimizationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "runs_total",
			Help:      "Total number of optimization runs by strategy and status",
		}, []string{"strategy", "status"}),
		OptimizationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "run_duration_seconds",
			Help:      "Optimization run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),
		DegradedFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "degraded_fallbacks_total",
			Help:      "Total number of degraded-mode strategy fallbacks by reason",
		}, []string{"reason"}),
		DataQualityWarnings: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "data_quality_warnings_total",
			Help:      "Total number of soft data-quality fallbacks by kind",
		}, []string{"kind"}),

		PlansGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rebalance",
			Name:      "plans_generated_total",
			Help:      "Total number of rebalance plans generated",
		}),
		TradesPlanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rebalance",
			Name:      "trades_planned_total",
			Help:      "Total number of trades emitted in rebalance plans",
		}),
		PlannedTurnover: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rebalance",
			Name:      "planned_turnover",
			Help:      "Turnover of generated rebalance plans",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1},
		}),

		SnapshotCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "snapshot_cache_hits_total",
			Help:      "Total number of fresh snapshot cache hits",
		}),
		SnapshotCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "snapshot_cache_misses_total",
			Help:      "Total number of snapshot cache misses or stale entries",
		}),
		SnapshotCacheRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "snapshot_cache_refreshes_total",
			Help:      "Total number of upstream snapshot refreshes",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulOptimization: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_optimization_timestamp",
			Help:      "Unix timestamp of last successful optimization",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOptimization records an optimization run.
func RecordOptimization(strategy, status string, seconds float64) {
	DefaultMetrics.OptimizationsTotal.WithLabelValues(strategy, status).Inc()
	DefaultMetrics.OptimizationSeconds.WithLabelValues(strategy).Observe(seconds)
}

// RecordDegradedFallback records a strategy falling back to risk parity.
func RecordDegradedFallback(reason string) {
	DefaultMetrics.DegradedFallbacks.WithLabelValues(reason).Inc()
}

// RecordDataQualityWarning records a soft statistical fallback.
func RecordDataQualityWarning(kind string) {
	DefaultMetrics.DataQualityWarnings.WithLabelValues(kind).Inc()
}

// RecordPlanGenerated records an emitted rebalance plan.
func RecordPlanGenerated(trades int, turnover float64) {
	DefaultMetrics.PlansGenerated.Inc()
	DefaultMetrics.TradesPlanned.Add(float64(trades))
	DefaultMetrics.PlannedTurnover.Observe(turnover)
}

// RecordSnapshotCacheHit records a fresh cache hit.
func RecordSnapshotCacheHit() {
	DefaultMetrics.SnapshotCacheHits.Inc()
}

// RecordSnapshotCacheMiss records a miss or stale entry.
func RecordSnapshotCacheMiss() {
	DefaultMetrics.SnapshotCacheMisses.Inc()
}

// RecordSnapshotCacheRefresh records an upstream refresh.
func RecordSnapshotCacheRefresh() {
	DefaultMetrics.SnapshotCacheRefreshes.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	TradesIngested  *prometheus.CounterVec
	TradesSkipped   *prometheus.CounterVec
	RowsMalformed   *prometheus.CounterVec
	IngestRunsTotal *prometheus.CounterVec
	IngestDuration  *prometheus.HistogramVec

	// Query metrics
	QueriesServed *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Simulation metrics
	SimulationsRun     prometheus.Counter
	TimeframesUpdated  prometheus.Counter
	MappingsApplied    prometheus.Counter
	SnapshotsPersisted prometheus.Counter

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSnapshotRefresh     prometheus.Gauge
	TradesStored            prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_analytics_lab"
	}

	return &Metrics{
		TradesIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_ingested_total",
			Help:      "Total number of new trades stored by source",
		}, []string{"source"}),
		TradesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_skipped_total",
			Help:      "Total number of already-seen trades skipped by source",
		}, []string{"source"}),
		RowsMalformed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_malformed_total",
			Help:      "Total number of unparseable feed rows by source",
		}, []string{"source"}),
		IngestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "runs_total",
			Help:      "Total number of ingest runs by source and status",
		}, []string{"source", "status"}),
		IngestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "run_duration_seconds",
			Help:      "Ingest run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"source"}),

		QueriesServed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "queries_served_total",
			Help:      "Total number of analytics queries served by endpoint",
		}, []string{"endpoint"}),
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "query_duration_seconds",
			Help:      "Analytics query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		SimulationsRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "challenge",
			Name:      "simulations_run_total",
			Help:      "Total number of challenge simulations executed",
		}),
		TimeframesUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "timeframes_backfilled_total",
			Help:      "Total number of Unknown timeframes resolved by backfill",
		}),
		MappingsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remap",
			Name:      "mappings_applied_total",
			Help:      "Total number of magic-number mappings applied at ingest",
		}),
		SnapshotsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshots",
			Name:      "persisted_total",
			Help:      "Total number of stats snapshots written",
		}),

		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingest run",
		}),
		LastSnapshotRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_snapshot_refresh_timestamp",
			Help:      "Unix timestamp of last snapshot refresh",
		}),
		TradesStored: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "trades_stored",
			Help:      "Number of trades currently stored",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTradeIngested increments the trades ingested counter.
func RecordTradeIngested(source string) {
	DefaultMetrics.TradesIngested.WithLabelValues(source).Inc()
}

// RecordTradeSkipped increments the duplicate-skip counter.
func RecordTradeSkipped(source string) {
	DefaultMetrics.TradesSkipped.WithLabelValues(source).Inc()
}

// RecordRowMalformed increments the malformed row counter.
func RecordRowMalformed(source string) {
	DefaultMetrics.RowsMalformed.WithLabelValues(source).Inc()
}

// RecordIngestRun records one completed ingest run.
func RecordIngestRun(source, status string, durationSeconds float64) {
	DefaultMetrics.IngestRunsTotal.WithLabelValues(source, status).Inc()
	DefaultMetrics.IngestDuration.WithLabelValues(source).Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulIngestion.Set(float64(time.Now().Unix()))
	}
}

// RecordQuery records one served analytics query.
func RecordQuery(endpoint string, durationSeconds float64) {
	DefaultMetrics.QueriesServed.WithLabelValues(endpoint).Inc()
	DefaultMetrics.QueryDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordSimulationRun increments the simulations counter.
func RecordSimulationRun() {
	DefaultMetrics.SimulationsRun.Inc()
}

// RecordTimeframesBackfilled adds to the backfill counter.
func RecordTimeframesBackfilled(n int) {
	DefaultMetrics.TimeframesUpdated.Add(float64(n))
}

// RecordMappingApplied increments the ingest-time mapping counter.
func RecordMappingApplied() {
	DefaultMetrics.MappingsApplied.Inc()
}

// RecordSnapshotPersisted increments the snapshot counter and refresh gauge.
func RecordSnapshotPersisted() {
	DefaultMetrics.SnapshotsPersisted.Inc()
	DefaultMetrics.LastSnapshotRefresh.Set(float64(time.Now().Unix()))
}

// SetTradesStored updates the stored-trades gauge.
func SetTradesStored(n int64) {
	DefaultMetrics.TradesStored.Set(float64(n))
}

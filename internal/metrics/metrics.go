// Package metrics provides Prometheus metrics for the pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Ingest metrics
	PrincipalsProcessed *prometheus.CounterVec
	PrincipalsSkipped   *prometheus.CounterVec
	PrincipalsFailed    *prometheus.CounterVec
	EventsIngested      *prometheus.CounterVec
	LandingWrites       *prometheus.CounterVec
	IngestDuration      *prometheus.HistogramVec

	// Transform metrics
	ObjectsTransformed *prometheus.CounterVec
	RowsAppended       *prometheus.CounterVec
	TransformFailures  *prometheus.CounterVec

	// Snapshot metrics
	SnapshotDuration prometheus.Histogram
	SnapshotRows     *prometheus.GaugeVec

	// Error metrics
	StoreErrors    *prometheus.CounterVec
	UpstreamErrors *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	initOnce       sync.Once
)

// Init initializes the metrics package with global metrics.
// Call this once at startup; later calls return the same instance.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hotspot"
	}

	initOnce.Do(func() {
		defaultMetrics = &Metrics{
			PrincipalsProcessed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "principals_processed_total",
					Help:      "Total number of principal ingest runs completed",
				},
				[]string{"principal"},
			),
			PrincipalsSkipped: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "principals_skipped_total",
					Help:      "Total number of principal runs skipped (no credential)",
				},
				[]string{"principal"},
			),
			PrincipalsFailed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "principals_failed_total",
					Help:      "Total number of principal runs that failed",
				},
				[]string{"principal"},
			),
			EventsIngested: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "events_ingested_total",
					Help:      "Total number of play events fetched from upstream",
				},
				[]string{"principal"},
			),
			LandingWrites: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "landing_writes_total",
					Help:      "Total number of landing records written",
				},
				[]string{"principal"},
			),
			IngestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "ingest_duration_seconds",
					Help:      "Time to complete one principal's ingest run",
					Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
				},
				[]string{"principal"},
			),
			ObjectsTransformed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "objects_transformed_total",
					Help:      "Total number of landing objects transformed",
				},
				[]string{"principal"},
			),
			RowsAppended: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "rows_appended_total",
					Help:      "Total number of rows appended to the plays table",
				},
				[]string{"principal"},
			),
			TransformFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "transform_failures_total",
					Help:      "Total number of failed transform attempts",
				},
				[]string{"principal"},
			),
			SnapshotDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "snapshot_duration_seconds",
					Help:      "Time to regenerate all snapshot artifacts",
					Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
				},
			),
			SnapshotRows: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "snapshot_rows",
					Help:      "Row count of the most recent snapshot per window",
				},
				[]string{"window"},
			),
			StoreErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "store_errors_total",
					Help:      "Total number of object or state store errors",
				},
				[]string{"operation"},
			),
			UpstreamErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "upstream_errors_total",
					Help:      "Total number of upstream API errors",
				},
				[]string{"principal"},
			),
		}
	})

	return defaultMetrics
}

// Default returns the global metrics instance, or nil before Init.
func Default() *Metrics {
	return defaultMetrics
}

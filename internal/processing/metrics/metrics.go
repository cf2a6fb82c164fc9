package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReleasesProcessed tracks per-release outcomes (found, no_nfo, retry)
	ReleasesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfowatch_releases_processed_total",
			Help: "Total number of releases attempted, by outcome",
		},
		[]string{"outcome"},
	)

	// FetchErrorsTotal tracks failed NFO retrievals
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfowatch_fetch_errors_total",
			Help: "Total number of failed NFO fetches",
		},
		[]string{"error_type"},
	)

	// QuarantinedTotal tracks releases moved to FAILED
	QuarantinedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nfowatch_quarantined_total",
			Help: "Total number of releases quarantined after exhausting retries",
		},
	)

	// ExtractorErrorsTotal tracks downstream extractor failures
	ExtractorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfowatch_extractor_errors_total",
			Help: "Total number of downstream extractor errors",
		},
		[]string{"extractor"},
	)

	// BatchDuration tracks the wall time of a batch pass
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nfowatch_batch_duration_seconds",
			Help:    "Batch pass duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// ClassifyDuration tracks classification latency
	ClassifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nfowatch_classify_duration_seconds",
			Help:    "Classification latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verdict"},
	)

	// PendingReleases tracks eligible releases per status before a batch
	PendingReleases = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nfowatch_pending_releases",
			Help: "Releases available to process, by nfostatus",
		},
		[]string{"status"},
	)

	// LeaseSkipsTotal tracks passes skipped because another instance held the lease
	LeaseSkipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nfowatch_lease_skips_total",
			Help: "Total number of passes skipped due to a held partition lease",
		},
	)

	// DBConnectionPoolUsage tracks the percentage of open connections in use
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nfowatch_db_connection_pool_usage_percent",
			Help: "Percentage of the database connection pool in use",
		},
	)
)

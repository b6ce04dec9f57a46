package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesession_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filesession_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Identity metrics
	SessionIDsIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filesession_ids_issued_total",
			Help: "Total number of session ids issued",
		},
	)

	// Record metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filesession_sessions_active",
			Help: "Number of stored session records",
		},
	)

	CorruptRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filesession_corrupt_records_total",
			Help: "Total number of session records that failed to decode",
		},
	)

	RecordOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesession_record_operations_total",
			Help: "Total number of session record operations",
		},
		[]string{"operation", "status"},
	)

	// Backend metrics
	BackendOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesession_backend_operations_total",
			Help: "Total number of backend operations",
		},
		[]string{"operation", "store_type", "status"},
	)

	BackendOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filesession_backend_operation_duration_seconds",
			Help:    "Backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "store_type"},
	)

	// Application info
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filesession_build_info",
			Help: "Build information",
		},
		[]string{"version", "commit", "build_date"},
	)
)

// SetBuildInfo sets the build information metric
func SetBuildInfo(version, commit, buildDate string) {
	BuildInfo.WithLabelValues(version, commit, buildDate).Set(1)
}

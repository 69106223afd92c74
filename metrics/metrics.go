package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "mediacycle"
	subsystem = "media"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "uploads_total",
			Help:      "Total staged file uploads",
		},
		[]string{"content_type", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upload_bytes_total",
			Help:      "Total bytes staged",
		},
		[]string{"content_type"},
	)

	PromotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "promotions_total",
			Help:      "Staged references processed during promotion",
		},
		[]string{"category", "outcome"},
	)

	ReconcileDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reconcile_deletions_total",
			Help:      "Permanent objects removed after their reference disappeared",
		},
		[]string{"category", "outcome"},
	)

	SweepObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_objects_total",
			Help:      "Objects examined by the orphan sweep",
		},
		[]string{"side", "outcome"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Orphan sweep duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800},
		},
	)

	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "blob_operations_total",
			Help:      "Total blob store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	BlobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "blob_duration_seconds",
			Help:      "Blob store operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"backend", "operation"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records a staged file
func RecordUpload(contentType, status string, bytes int64) {
	UploadsTotal.WithLabelValues(contentType, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(contentType).Add(float64(bytes))
	}
}

func RecordPromotion(category, outcome string, n int) {
	if n > 0 {
		PromotionsTotal.WithLabelValues(category, outcome).Add(float64(n))
	}
}

func RecordReconcile(category, outcome string, n int) {
	if n > 0 {
		ReconcileDeletionsTotal.WithLabelValues(category, outcome).Add(float64(n))
	}
}

func RecordSweep(side, outcome string, n int) {
	if n > 0 {
		SweepObjectsTotal.WithLabelValues(side, outcome).Add(float64(n))
	}
}

func RecordSweepDuration(durationSec float64) {
	SweepDuration.Observe(durationSec)
}

// RecordBlobOperation records a blob store call
func RecordBlobOperation(backend, operation, status string, durationSec float64) {
	BlobOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	BlobDuration.WithLabelValues(backend, operation).Observe(durationSec)
}

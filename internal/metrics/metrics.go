// Package metrics provides Prometheus metrics for the folder client and the
// reference folder server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Client call metrics
	clientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharingconfigs_client_requests_total",
			Help: "Total remote folder API calls made by the client",
		},
		[]string{"operation", "outcome"},
	)

	clientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharingconfigs_client_request_duration_seconds",
			Help:    "Remote folder API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	transferBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharingconfigs_client_transfer_bytes_total",
			Help: "Bytes of file content moved by the client",
		},
		[]string{"direction"},
	)

	// Server metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharingconfigs_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharingconfigs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	storedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sharingconfigs_stored_files",
			Help: "Number of files held by the folder server",
		},
	)

	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharingconfigs_storage_operation_duration_seconds",
			Help:    "Storage backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharingconfigs_storage_operations_total",
			Help: "Total storage backend operations",
		},
		[]string{"backend", "operation", "status"},
	)
)

// Transfer directions.
const (
	DirectionImport   = "import"
	DirectionExport   = "export"
	DirectionDownload = "download"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordClientRequest records one remote API call.
func RecordClientRequest(operation string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	clientRequestsTotal.WithLabelValues(operation, outcome).Inc()
	clientRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTransfer records file content sent or received by the client.
func RecordTransfer(direction string, bytes int) {
	transferBytes.WithLabelValues(direction).Add(float64(bytes))
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetStoredFiles sets the number of files held by the server.
func SetStoredFiles(n int) {
	storedFiles.Set(float64(n))
}

// RecordStorageOperation records a storage backend operation.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	storageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts served requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktrack_http_requests_total",
			Help: "HTTP requests served, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency by method and route pattern.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasktrack_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// LifecycleOperations counts task lifecycle runs by operation and result.
	LifecycleOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktrack_lifecycle_operations_total",
			Help: "Task create/update/delete runs, by result.",
		},
		[]string{"op", "result"},
	)

	// AttachmentsPromoted counts staged uploads moved into permanent storage.
	AttachmentsPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tasktrack_attachments_promoted_total",
		Help: "Staged uploads promoted into task storage and committed.",
	})

	// AttachmentCleanupFailures counts post-commit deletes that failed.
	AttachmentCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tasktrack_attachment_cleanup_failures_total",
		Help: "Attachment binaries that could not be removed after commit.",
	})

	// StagedUploads counts accepted uploads written to staging.
	StagedUploads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tasktrack_staged_uploads_total",
		Help: "Uploads accepted into the staging area.",
	})

	// StagingSwept counts stale staged uploads removed by the sweeper.
	StagingSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tasktrack_staging_swept_total",
		Help: "Stale staged uploads removed.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eckclaims",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eckclaims",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	jobsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eckclaims",
			Name:      "jobs_created_total",
			Help:      "Serial jobs created, by whether they continue a replacement chain.",
		},
		[]string{"replacement"},
	)
	serialRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eckclaims",
			Name:      "serial_rejections_total",
			Help:      "Serial job creates rejected, by reason.",
		},
		[]string{"reason"},
	)
	catalogUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eckclaims",
			Name:      "catalog_uploads_total",
			Help:      "Product catalog uploads, by outcome.",
		},
		[]string{"success"},
	)
)

// RegisterMetrics registers every collector with the default registry once
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, jobsCreated, serialRejections, catalogUploads)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordJobCreated(replacement bool) {
	RegisterMetrics()
	jobsCreated.WithLabelValues(strconv.FormatBool(replacement)).Inc()
}

// RecordSerialRejection counts a refused create; reason is duplicate, race or invalid
func RecordSerialRejection(reason string) {
	RegisterMetrics()
	serialRejections.WithLabelValues(reason).Inc()
}

func RecordCatalogUpload(success bool) {
	RegisterMetrics()
	catalogUploads.WithLabelValues(strconv.FormatBool(success)).Inc()
}

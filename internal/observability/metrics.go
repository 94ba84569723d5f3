package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for conversion and combine calls.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textpress",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "textpress",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	convertCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textpress",
			Subsystem: "orchestrator",
			Name:      "convert_total",
			Help:      "Slot conversions by outcome.",
		},
		[]string{"outcome"},
	)
	convertDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "textpress",
			Subsystem: "orchestrator",
			Name:      "convert_duration_seconds",
			Help:      "Slot conversion duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	combineCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textpress",
			Subsystem: "orchestrator",
			Name:      "combine_total",
			Help:      "Combine calls by outcome.",
		},
		[]string{"outcome"},
	)
	combineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "textpress",
			Subsystem: "orchestrator",
			Name:      "combine_duration_seconds",
			Help:      "Combine call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	documentsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textpress",
			Subsystem: "documents",
			Name:      "stored_total",
			Help:      "Documents persisted by source type.",
		},
		[]string{"source_type"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			convertCalls, convertDuration,
			combineCalls, combineDuration,
			documentsStored,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordConvert(outcome string, duration time.Duration) {
	RegisterMetrics()
	convertCalls.WithLabelValues(outcome).Inc()
	convertDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordCombine(outcome string, duration time.Duration) {
	RegisterMetrics()
	combineCalls.WithLabelValues(outcome).Inc()
	combineDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordDocumentStored(sourceType string) {
	RegisterMetrics()
	documentsStored.WithLabelValues(sourceType).Inc()
}

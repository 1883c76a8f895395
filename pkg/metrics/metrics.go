// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ImageCallDuration tracks external image function call duration.
	ImageCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_call_duration_seconds",
			Help:    "External image edit/generate call duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "operation", "status"},
	)

	// ChatsTotal tracks total chats created, labeled by how they were created.
	ChatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chats_total",
			Help: "Total chats created",
		},
		[]string{"origin"},
	)

	// EditsTotal tracks total edits persisted.
	EditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edits_total",
			Help: "Total edits persisted",
		},
		[]string{"kind"},
	)

	// ForksTotal tracks chats created by branching from history.
	ForksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forks_total",
			Help: "Total chats created by forking",
		},
	)

	// SubscriptionsActive tracks active chat event subscriptions.
	SubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_subscriptions_active",
			Help: "Number of active chat event subscriptions",
		},
	)

	// BlobBytesTotal tracks bytes moved through the object store.
	BlobBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blob_bytes_total",
			Help: "Bytes written to or read from the object store",
		},
		[]string{"direction"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordImageCall records metrics for an external image function call.
func RecordImageCall(provider, operation, status string, duration float64) {
	ImageCallDuration.WithLabelValues(provider, operation, status).Observe(duration)
}

// IncrementSubscriptions increments the active subscription count.
func IncrementSubscriptions() {
	SubscriptionsActive.Inc()
}

// DecrementSubscriptions decrements the active subscription count.
func DecrementSubscriptions() {
	SubscriptionsActive.Dec()
}

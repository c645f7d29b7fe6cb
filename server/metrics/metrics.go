// Package metrics exposes Prometheus collectors for the chat pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for the chat pipeline.
type Metrics struct {
	ChatRequests   *prometheus.CounterVec
	StreamDuration prometheus.Histogram
	ProviderErrors *prometheus.CounterVec
}

// New registers the chat collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aiven",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat requests by mode and outcome.",
		}, []string{"mode", "status"}),
		StreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aiven",
			Subsystem: "chat",
			Name:      "stream_duration_seconds",
			Help:      "Wall-clock duration of streaming chat turns.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aiven",
			Subsystem: "chat",
			Name:      "provider_errors_total",
			Help:      "Classified provider failures by kind.",
		}, []string{"kind"}),
	}
}

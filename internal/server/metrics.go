package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the HTTP API
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec
	collectors      []prometheus.Collector
}

// NewMetrics creates the HTTP API metrics
func NewMetrics() *Metrics {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftwatch_http_requests_total",
			Help: "Total number of HTTP requests processed by the API",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "driftwatch_http_request_duration_seconds",
			Help:    "Time spent processing HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftwatch_http_errors_total",
			Help: "Total number of HTTP errors",
		},
		[]string{"method", "path", "status"},
	)

	return &Metrics{
		RequestsTotal:   requestsTotal,
		RequestDuration: requestDuration,
		ErrorsTotal:     errorsTotal,
		collectors: []prometheus.Collector{
			requestsTotal,
			requestDuration,
			errorsTotal,
		},
	}
}

// GetCollectors returns all collectors for registration
func (m *Metrics) GetCollectors() []prometheus.Collector {
	return m.collectors
}

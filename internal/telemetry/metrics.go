package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the client and the sandbox.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SandboxRequests *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg. A nil reg uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestack_requests_total",
				Help: "Total number of CaseStack API calls by resource, method, and status",
			},
			[]string{"resource", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casestack_request_duration_seconds",
				Help:    "CaseStack API call duration in seconds by resource and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource", "method"},
		),
		SandboxRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casestack_sandbox_requests_total",
				Help: "Total requests served by the sandbox by resource and status",
			},
			[]string{"resource", "status"},
		),
	}
}

// RecordRequest records a client call. It satisfies casestack.MetricsRecorder.
func (m *Metrics) RecordRequest(resource, method, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(resource, method, status).Inc()
	m.RequestDuration.WithLabelValues(resource, method).Observe(duration)
}

// RecordSandboxRequest records a request answered by the sandbox.
func (m *Metrics) RecordSandboxRequest(resource, status string) {
	m.SandboxRequests.WithLabelValues(resource, status).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeTransport = "transport"
)

// Metrics holds the client-side request metrics.
type Metrics struct {
	RequestTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates the request metrics and registers them with reg.
// A nil reg leaves the metrics unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamvibe",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of backend requests by operation and outcome",
		}, []string{"operation", "outcome"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "streamvibe",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Backend request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	if reg != nil {
		m.RequestTotal = registerOrGet(reg, m.RequestTotal).(*prometheus.CounterVec)
		m.RequestDuration = registerOrGet(reg, m.RequestDuration).(*prometheus.HistogramVec)
	}

	return m
}

// Observe records one finished request.
func (m *Metrics) Observe(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestTotal.WithLabelValues(operation, outcome).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}

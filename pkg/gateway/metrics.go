package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	rateLimitedTotal    prometheus.Counter
	securityBlocksTotal *prometheus.CounterVec
	schemaRejectsTotal  *prometheus.CounterVec
	internalFaultsTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secgate_requests_total",
				Help: "Total requests processed, by terminal stage and status",
			},
			[]string{"stage", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secgate_request_duration_seconds",
				Help:    "Request processing latency by terminal stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		rateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "secgate_rate_limited_total",
				Help: "Requests denied by the sliding-window rate limiter",
			},
		),
		securityBlocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secgate_security_blocks_total",
				Help: "Requests rejected by the security heuristics scan, by issue code",
			},
			[]string{"issue"},
		),
		schemaRejectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secgate_schema_rejects_total",
				Help: "Requests that failed schema validation, by schema kind",
			},
			[]string{"schema_kind"},
		),
		internalFaultsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "secgate_internal_faults_total",
				Help: "Unexpected internal failures",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.rateLimitedTotal,
		m.securityBlocksTotal,
		m.schemaRejectsTotal,
		m.internalFaultsTotal,
	)

	return m
}

// ObserveRequest records the terminal stage, status and latency of a request.
func (m *Metrics) ObserveRequest(stage string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(stage, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RateLimited counts a limiter denial.
func (m *Metrics) RateLimited() {
	m.rateLimitedTotal.Inc()
}

// SecurityBlocked counts each triggered issue code of a blocked request.
func (m *Metrics) SecurityBlocked(issues []string) {
	for _, issue := range issues {
		m.securityBlocksTotal.WithLabelValues(issue).Inc()
	}
}

// SchemaRejected counts a schema validation failure.
func (m *Metrics) SchemaRejected(schemaKind string) {
	m.schemaRejectsTotal.WithLabelValues(schemaKind).Inc()
}

// InternalFault counts an unexpected failure.
func (m *Metrics) InternalFault() {
	m.internalFaultsTotal.Inc()
}

// Handler exposes the metrics registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

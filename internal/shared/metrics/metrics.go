package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	sessionOps       *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	upstreamRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_upstream_requests_total",
		Help: "Requests forwarded to the upstream backend, by method and status code.",
	}, []string{"method", "status"})

	sessionOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_session_operations_total",
		Help: "Session lifecycle operations, by operation and outcome.",
	}, []string{"operation", "outcome"})

	registry.MustRegister(upstreamRequests, sessionOps)

	return &Metrics{
		upstreamRequests: upstreamRequests,
		sessionOps:       sessionOps,
		registry:         registry,
	}
}

// ObserveUpstreamRequest counts one forwarded upstream request.
func (m *Metrics) ObserveUpstreamRequest(method string, statusCode int) {
	m.upstreamRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

// ObserveSessionOp counts one session operation (login, register, logout,
// refresh, update, change_password, expire) with its outcome.
func (m *Metrics) ObserveSessionOp(operation, outcome string) {
	m.sessionOps.WithLabelValues(operation, outcome).Inc()
}

// Handler returns an HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

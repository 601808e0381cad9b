package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	signupsTotal    prometheus.Counter
	loginsTotal     *prometheus.CounterVec
}

// NewMetrics builds a self-contained registry so tests can construct several
// instances without collector collisions.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lodge",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status class.",
		}, []string{"method", "class"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lodge",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		signupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lodge",
			Name:      "signups_total",
			Help:      "Successful registrations.",
		}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lodge",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.requestsTotal, m.requestDuration, m.signupsTotal, m.loginsTotal)
	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, statusClass(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(seconds)
}

// CountSignup records one successful registration.
func (m *Metrics) CountSignup() {
	if m == nil {
		return
	}
	m.signupsTotal.Inc()
}

// CountLogin records a login attempt. Outcome is "ok" or "failed".
func (m *Metrics) CountLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

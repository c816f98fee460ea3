// Package observability provides logging, metrics and tracing setup.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for the process. Each collector
// owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// Auto-configuration
	Decisions *prometheus.CounterVec

	// Open-session-in-view
	SessionsOpened  prometheus.Counter
	SessionsClosed  *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with metrics under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	decisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autoconfig",
			Name:      "decisions_total",
			Help:      "Component activation decisions by component and outcome",
		},
		[]string{"component", "outcome"},
	)

	sessionsOpened := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "osiv",
			Name:      "sessions_opened_total",
			Help:      "Sessions opened for web requests",
		},
	)

	sessionsClosed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "osiv",
			Name:      "sessions_closed_total",
			Help:      "Sessions closed at the end of web requests",
		},
		[]string{"status"},
	)

	sessionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "osiv",
			Name:      "session_duration_seconds",
			Help:      "Lifetime of request-scoped sessions",
			Buckets:   prometheus.DefBuckets,
		},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		decisions,
		sessionsOpened,
		sessionsClosed,
		sessionDuration,
		httpRequests,
		httpDuration,
	)

	return &Collector{
		registry:        registry,
		Decisions:       decisions,
		SessionsOpened:  sessionsOpened,
		SessionsClosed:  sessionsClosed,
		SessionDuration: sessionDuration,
		HTTPRequests:    httpRequests,
		HTTPDuration:    httpDuration,
	}
}

// RecordDecision counts one activation decision.
func (c *Collector) RecordDecision(component, outcome string) {
	c.Decisions.WithLabelValues(component, outcome).Inc()
}

// SessionOpened counts a request-scoped session being opened.
func (c *Collector) SessionOpened() {
	c.SessionsOpened.Inc()
}

// SessionClosed records the end of a request-scoped session.
func (c *Collector) SessionClosed(lifetime time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.SessionsClosed.WithLabelValues(status).Inc()
	c.SessionDuration.Observe(lifetime.Seconds())
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

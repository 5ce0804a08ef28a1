// Package metrics provides Prometheus metrics for the chat service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports chat metrics in Prometheus format.
type Metrics struct {
	registry *prometheus.Registry

	sends             *prometheus.CounterVec
	responderLatency  prometheus.Histogram
	responderFailures *prometheus.CounterVec
	activeSends       prometheus.Gauge
}

// New creates the chat metrics collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradechat",
			Name:      "message_sends_total",
			Help:      "Total message send operations by outcome.",
		}, []string{"outcome"}),
		responderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tradechat",
			Name:      "responder_duration_seconds",
			Help:      "Latency of assistant reply generation.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		responderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradechat",
			Name:      "responder_failures_total",
			Help:      "Total assistant responder failures by stage.",
		}, []string{"stage"}),
		activeSends: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradechat",
			Name:      "active_sends",
			Help:      "Message sends currently in flight.",
		}),
	}

	registry.MustRegister(m.sends, m.responderLatency, m.responderFailures, m.activeSends)
	return m
}

// SendStarted marks a message send as in flight.
func (m *Metrics) SendStarted() {
	m.activeSends.Inc()
}

// SendFinished records the outcome of a completed send.
func (m *Metrics) SendFinished(outcome string) {
	m.activeSends.Dec()
	m.sends.WithLabelValues(outcome).Inc()
}

// ObserveResponder records a responder call's duration and failure stage
// ("" for success).
func (m *Metrics) ObserveResponder(duration time.Duration, failureStage string) {
	m.responderLatency.Observe(duration.Seconds())
	if failureStage != "" {
		m.responderFailures.WithLabelValues(failureStage).Inc()
	}
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

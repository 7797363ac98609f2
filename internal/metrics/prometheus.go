// Package metrics exposes railsdash Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "railsdash"

// PrometheusMetrics holds the registered collectors. It satisfies
// railsr.Observer and dashboard.Recorder.
type PrometheusMetrics struct {
	UpstreamRequests   *prometheus.CounterVec
	UpstreamDuration   *prometheus.HistogramVec
	DashboardFallbacks *prometheus.CounterVec
	DashboardBalance   *prometheus.GaugeVec
	WebhooksReceived   *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers all collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API calls by resource and outcome.",
		}, []string{"resource", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"resource"}),
		DashboardFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_fallbacks_total",
			Help:      "Dashboard summaries served from the mock dataset, by reason.",
		}, []string{"reason"}),
		DashboardBalance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_balance",
			Help:      "Last reported program balance per currency.",
		}, []string{"currency"}),
		WebhooksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "Inbound webhooks by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.DashboardFallbacks,
		m.DashboardBalance,
		m.WebhooksReceived,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// ObserveRequest records one upstream call.
func (m *PrometheusMetrics) ObserveRequest(resource, outcome string, d time.Duration) {
	m.UpstreamRequests.WithLabelValues(resource, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(resource).Observe(d.Seconds())
}

func (m *PrometheusMetrics) IncFallback(reason string) {
	m.DashboardFallbacks.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) SetBalance(currency string, value float64) {
	m.DashboardBalance.WithLabelValues(currency).Set(value)
}

// RecordWebhook counts an inbound webhook. result is accepted, rejected,
// disabled or failed.
func (m *PrometheusMetrics) RecordWebhook(result string) {
	m.WebhooksReceived.WithLabelValues(result).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

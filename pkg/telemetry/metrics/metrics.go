package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus instruments. All metrics share
// one namespace so dashboards can scope on it.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	tokensTotal      *prometheus.CounterVec
	activeStreams    prometheus.Gauge
	failoversTotal   *prometheus.CounterVec
	rateLimited      *prometheus.GaugeVec
	deployments      *prometheus.GaugeVec
	tokenRefreshes   *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
	upstreamDuration *prometheus.HistogramVec
}

// New creates the instrument set on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "saturn"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completed requests by dialect, model, provider and status.",
		}, []string{"dialect", "model", "provider", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"dialect", "model", "provider"}),

		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Token counts reported by the backend, by direction.",
		}, []string{"model", "provider", "direction"}),

		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Streaming responses currently in flight.",
		}),

		failoversTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failovers_total",
			Help:      "Rate-limit failovers from one provider to the next.",
		}, []string{"provider"}),

		rateLimited: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_rate_limited",
			Help:      "1 while the provider sits in its rate-limit cooldown window.",
		}, []string{"provider"}),

		deployments: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deployments",
			Help:      "Running deployments discovered per provider.",
		}, []string{"provider"}),

		tokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "OAuth token refresh attempts by outcome.",
		}, []string{"provider", "outcome"}),

		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deployment_refresh_duration_seconds",
			Help:      "Duration of deployment directory refresh cycles.",
			Buckets:   prometheus.DefBuckets,
		}),

		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of individual backend calls, including failed attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider", "outcome"}),
	}
}

// Handler returns the scrape endpoint handler for this instrument set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRequest records one completed request.
func (m *Metrics) ObserveRequest(dialect, model, provider, status string, d time.Duration) {
	m.requestsTotal.WithLabelValues(dialect, model, provider, status).Inc()
	m.requestDuration.WithLabelValues(dialect, model, provider).Observe(d.Seconds())
}

// ObserveTokens records backend-reported token usage.
func (m *Metrics) ObserveTokens(model, provider string, prompt, completion int) {
	if prompt > 0 {
		m.tokensTotal.WithLabelValues(model, provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.tokensTotal.WithLabelValues(model, provider, "completion").Add(float64(completion))
	}
}

// ObserveUpstream records one backend call attempt.
func (m *Metrics) ObserveUpstream(provider, outcome string, d time.Duration) {
	m.upstreamDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// StreamStarted and StreamFinished bracket an in-flight SSE response.
func (m *Metrics) StreamStarted()  { m.activeStreams.Inc() }
func (m *Metrics) StreamFinished() { m.activeStreams.Dec() }

// ObserveFailover records a rate-limit failover away from provider.
func (m *Metrics) ObserveFailover(provider string) {
	m.failoversTotal.WithLabelValues(provider).Inc()
}

// SetRateLimited flips the cooldown gauge for provider.
func (m *Metrics) SetRateLimited(provider string, limited bool) {
	v := 0.0
	if limited {
		v = 1.0
	}
	m.rateLimited.WithLabelValues(provider).Set(v)
}

// SetDeployments records the deployment count discovered for provider.
func (m *Metrics) SetDeployments(provider string, n int) {
	m.deployments.WithLabelValues(provider).Set(float64(n))
}

// ObserveTokenRefresh records one OAuth token exchange attempt.
func (m *Metrics) ObserveTokenRefresh(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.tokenRefreshes.WithLabelValues(provider, outcome).Inc()
}

// ObserveRefreshCycle records the duration of one directory refresh pass.
func (m *Metrics) ObserveRefreshCycle(d time.Duration) {
	m.refreshDuration.Observe(d.Seconds())
}

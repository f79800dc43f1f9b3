package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quickai"

// PrometheusRecorder exports metrics on its own registry.
type PrometheusRecorder struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	upstream    *prometheus.HistogramVec
	freeUsage   prometheus.Counter
	auth        *prometheus.CounterVec
	rateLimited prometheus.Counter
}

// NewPrometheus creates a recorder with Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		registry: reg,
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Pipeline runs by operation and outcome.",
		}, []string{"operation", "outcome"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of external provider calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"operation"}),
		freeUsage: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "free_usage_consumed_total",
			Help:      "Free generations metered.",
		}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by credential source and result.",
		}, []string{"source", "result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-user rate limiter.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.generations,
		p.upstream,
		p.freeUsage,
		p.auth,
		p.rateLimited,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *PrometheusRecorder) IncGeneration(operation, outcome string) {
	p.generations.WithLabelValues(operation, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveUpstreamDuration(operation string, d time.Duration) {
	p.upstream.WithLabelValues(operation).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFreeUsageConsumed() {
	p.freeUsage.Inc()
}

func (p *PrometheusRecorder) IncAuth(source, result string) {
	p.auth.WithLabelValues(source, result).Inc()
}

func (p *PrometheusRecorder) IncRateLimited() {
	p.rateLimited.Inc()
}

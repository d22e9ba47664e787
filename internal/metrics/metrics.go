package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts relay outcomes. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	upstream prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "get2put",
			Name:      "requests_total",
			Help:      "Relay requests by outcome.",
		}, []string{"outcome"}),
		upstream: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "get2put",
			Name:      "upstream_duration_seconds",
			Help:      "Duration of upstream PUT requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.outcomes, m.upstream)
	return m
}

func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpstream(d time.Duration) {
	if m == nil {
		return
	}
	m.upstream.Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors on its own registry. A nil *Metrics
// records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	dispatches  *prometheus.CounterVec
	drift       *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proposalflow",
			Name:      "transitions_total",
			Help:      "Status transitions by context and outcome.",
		}, []string{"context", "from", "to", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "proposalflow",
			Name:      "transition_duration_seconds",
			Help:      "Time spent applying a transition, including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proposalflow",
			Name:      "event_dispatches_total",
			Help:      "Domain event dispatches by type, queue and outcome.",
		}, []string{"event_type", "queue", "outcome"}),
		drift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "proposalflow",
			Name:      "status_drift_proposals",
			Help:      "Proposals found drifting between legacy and contextual status on the last check.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.duration,
		m.dispatches,
		m.drift,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTransition(statusContext, from, to, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.transitions.WithLabelValues(statusContext, from, to, outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveDispatch(eventType, queue, outcome string) {
	if m == nil {
		return
	}

	m.dispatches.WithLabelValues(eventType, queue, outcome).Inc()
}

func (m *Metrics) ObserveDrift(inconsistent, orphaned int) {
	if m == nil {
		return
	}

	m.drift.WithLabelValues("inconsistent").Set(float64(inconsistent))
	m.drift.WithLabelValues("orphaned").Set(float64(orphaned))
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exports phase and request metrics on its own registry.
type Prometheus struct {
	registry          *prometheus.Registry
	phases            *prometheus.CounterVec
	phaseDuration     *prometheus.HistogramVec
	requests          *prometheus.CounterVec
	requestDuration   prometheus.Histogram
	timezoneConflicts prometheus.Counter
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convene",
			Name:      "phase_total",
			Help:      "Coordination phases by outcome (completed or fallback).",
		}, []string{"phase", "outcome"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "convene",
			Name:      "phase_duration_seconds",
			Help:      "Time spent per coordination phase call.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"phase"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convene",
			Name:      "requests_total",
			Help:      "Schedule requests by result.",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "convene",
			Name:      "request_duration_seconds",
			Help:      "End-to-end schedule request processing time.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		timezoneConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "convene",
			Name:      "timezone_conflicts_total",
			Help:      "Requests whose proposed time was outside someone's business hours.",
		}),
	}

	p.registry.MustRegister(
		p.phases,
		p.phaseDuration,
		p.requests,
		p.requestDuration,
		p.timezoneConflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) ObservePhase(phase string, outcome Outcome, elapsed time.Duration) {
	p.phases.WithLabelValues(phase, string(outcome)).Inc()
	p.phaseDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
}

func (p *Prometheus) ObserveRequest(s RequestSummary) {
	result := "success"
	if !s.Success {
		result = "error"
	}
	p.requests.WithLabelValues(result).Inc()
	p.requestDuration.Observe(s.ProcessingTime.Seconds())
	if s.TimezoneConflict {
		p.timezoneConflicts.Inc()
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

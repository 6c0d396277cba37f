// Package metrics exposes enrichment and review counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes.
const (
	OutcomeGenerated     = "generated"
	OutcomeSkipped       = "skipped"
	OutcomeFallback      = "fallback"
	OutcomeRaceLost      = "race_lost"
	OutcomeModelError    = "model_error"
	OutcomeInvalidOutput = "invalid_output"
)

// Recorder holds the notebook collectors on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	modelCalls  *prometheus.HistogramVec
	reviews     *prometheus.CounterVec
}

// New creates a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notebook",
			Name:      "generations_total",
			Help:      "Enrichment requests by field and outcome.",
		}, []string{"field", "outcome"}),
		modelCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notebook",
			Name:      "model_call_seconds",
			Help:      "Latency of model gateway calls by field.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"field"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notebook",
			Name:      "review_transitions_total",
			Help:      "Category review transitions by action.",
		}, []string{"action"}),
	}
	reg.MustRegister(
		r.generations,
		r.modelCalls,
		r.reviews,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Generation counts one enrichment request.
func (r *Recorder) Generation(field, outcome string) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(field, outcome).Inc()
}

// ModelCall observes the duration of one gateway call.
func (r *Recorder) ModelCall(field string, d time.Duration) {
	if r == nil {
		return
	}
	r.modelCalls.WithLabelValues(field).Observe(d.Seconds())
}

// ReviewTransition counts one applied review action.
func (r *Recorder) ReviewTransition(action string) {
	if r == nil {
		return
	}
	r.reviews.WithLabelValues(action).Inc()
}

// Registry returns the underlying registry, or nil for a nil Recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

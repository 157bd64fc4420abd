// Package metrics records pipeline activity with Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the engine's Prometheus collectors. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	reports     *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	checks      *prometheus.CounterVec
	cacheHits   *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer
// for the process-wide registry.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		reports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statement_engine_reports_total",
				Help: "Total number of reports generated, by status",
			},
			[]string{"status"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statement_engine_resolutions_total",
				Help: "Concept resolutions by tier (unresolved when no strategy matched)",
			},
			[]string{"tier"},
		),
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statement_engine_checks_total",
				Help: "Equation checks by name and outcome",
			},
			[]string{"equation", "passed"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statement_engine_cache_lookups_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "statement_engine_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// RecordReport counts a finished report.
func (r *Recorder) RecordReport(status string) {
	if r == nil {
		return
	}
	r.reports.WithLabelValues(status).Inc()
}

// RecordResolution counts one resolved (or unresolved) line item.
func (r *Recorder) RecordResolution(tier string) {
	if r == nil {
		return
	}
	if tier == "" {
		tier = "unresolved"
	}
	r.resolutions.WithLabelValues(tier).Inc()
}

// RecordCheck counts an equation check outcome.
func (r *Recorder) RecordCheck(equation string, passed bool) {
	if r == nil {
		return
	}
	label := "false"
	if passed {
		label = "true"
	}
	r.checks.WithLabelValues(equation, label).Inc()
}

// RecordCacheLookup counts a result cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	if r == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheHits.WithLabelValues(outcome).Inc()
}

// RecordLatency records stage latency in seconds.
func (r *Recorder) RecordLatency(stage string, seconds float64) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(stage).Observe(seconds)
}

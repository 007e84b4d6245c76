// Package metrics exposes validation activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

const namespace = "ewp_validator"

// Metrics holds the collectors of one process. Each instance has its own
// registry, so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	steps            *prometheus.CounterVec
	runs             *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	inFlight         prometheus.Gauge
	catalogueReloads *prometheus.CounterVec
}

var _ engine.Observer = (*Metrics)(nil)

// New creates and registers the collectors, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Finished validation steps by phase and status.",
		}, []string{"phase", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished validation runs by API and outcome.",
		}, []string{"api", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of validation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"api"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Validation runs currently executing.",
		}),
		catalogueReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalogue_reloads_total",
			Help:      "Catalogue reload attempts by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.steps,
		m.runs,
		m.runDuration,
		m.inFlight,
		m.catalogueReloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// StepFinished counts a step as soon as the engine records it.
func (m *Metrics) StepFinished(s report.Step) {
	status := s.Status.String()
	if s.Skipped {
		status = "SKIPPED"
	}
	m.steps.WithLabelValues(string(s.Phase), status).Inc()
}

// RunStarted marks a run as executing. The returned func ends it.
func (m *Metrics) RunStarted() func() {
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// ObserveReport records a finished run.
func (m *Metrics) ObserveReport(rep report.Report) {
	m.runs.WithLabelValues(rep.API, Outcome(rep)).Inc()
	if d := rep.Duration(); d > 0 {
		m.runDuration.WithLabelValues(rep.API).Observe(d.Seconds())
	}
}

// CatalogueReloaded counts a reload attempt.
func (m *Metrics) CatalogueReloaded(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.catalogueReloads.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests and for embedding into other handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Outcome classifies a report: cancelled, aborted, failed or passed.
func Outcome(rep report.Report) string {
	switch {
	case rep.Cancelled:
		return "cancelled"
	case rep.Aborted:
		return "aborted"
	case !rep.Passed():
		return "failed"
	}
	return "passed"
}

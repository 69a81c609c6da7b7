package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "factorlab"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	evaluations  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	admissions   *prometheus.CounterVec
	excluded     *prometheus.CounterVec
	batchRuns    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Single-horizon evaluations by evaluator and outcome.",
		}, []string{"evaluator", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of one single-horizon evaluation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"evaluator"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Admission decisions by resulting state.",
		}, []string{"state"}),
		excluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "excluded_dates_total",
			Help:      "Dates dropped for insufficient cross-section, by stage.",
		}, []string{"stage"}),
		batchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_candidates_total",
			Help:      "Batch candidates processed by outcome.",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_lookups_total",
			Help:      "Evaluation report cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.evaluations,
		m.duration,
		m.admissions,
		m.excluded,
		m.batchRuns,
		m.cacheLookups,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveEvaluation records one evaluator run
func (m *Metrics) ObserveEvaluation(evaluator, status string, elapsed time.Duration) {
	m.evaluations.WithLabelValues(evaluator, status).Inc()
	m.duration.WithLabelValues(evaluator).Observe(elapsed.Seconds())
}

// AddExcludedDates counts dates skipped at a stage ("rank_ic", "buckets")
func (m *Metrics) AddExcludedDates(stage string, n int) {
	if n <= 0 {
		return
	}
	m.excluded.WithLabelValues(stage).Add(float64(n))
}

// ObserveAdmission counts a decision by state
func (m *Metrics) ObserveAdmission(state string) {
	m.admissions.WithLabelValues(state).Inc()
}

// ObserveBatchItem counts a batch candidate by outcome (admitted, rejected, error)
func (m *Metrics) ObserveBatchItem(outcome string) {
	m.batchRuns.WithLabelValues(outcome).Inc()
}

// ObserveCache counts a report cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Registry exposes the private registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package contracts

import (
	"math"
	"sort"
	"time"
)

// Point is one dated value of an artifact series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a date-ordered artifact.
type Series []Point

// Values returns the series values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Dates returns the series dates in order.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

// EvalResult is the per-horizon evaluation bundle. It is immutable:
// constructors and getters copy, so no caller can change a stored result.
type EvalResult struct {
	factor    string
	evaluator string
	horizon   int
	metrics   map[string]float64
	artifacts map[string]Series
	notes     map[string]string
}

// NewEvalResult builds a result from deep copies of the given maps.
func NewEvalResult(factor, evaluator string, horizon int, metrics map[string]float64, artifacts map[string]Series, notes map[string]string) *EvalResult {
	r := &EvalResult{
		factor:    factor,
		evaluator: evaluator,
		horizon:   horizon,
		metrics:   make(map[string]float64, len(metrics)),
		artifacts: make(map[string]Series, len(artifacts)),
		notes:     make(map[string]string, len(notes)),
	}
	for k, v := range metrics {
		r.metrics[k] = v
	}
	for k, s := range artifacts {
		r.artifacts[k] = append(Series(nil), s...)
	}
	for k, v := range notes {
		r.notes[k] = v
	}
	return r
}

func (r *EvalResult) Factor() string    { return r.factor }
func (r *EvalResult) Evaluator() string { return r.evaluator }
func (r *EvalResult) Horizon() int      { return r.horizon }

// Metric returns a metric value; unknown names report (NaN, false).
func (r *EvalResult) Metric(name string) (float64, bool) {
	v, ok := r.metrics[name]
	if !ok {
		return math.NaN(), false
	}
	return v, true
}

// Metrics returns a copy of all metrics.
func (r *EvalResult) Metrics() map[string]float64 {
	out := make(map[string]float64, len(r.metrics))
	for k, v := range r.metrics {
		out[k] = v
	}
	return out
}

// MetricNames returns metric names sorted.
func (r *EvalResult) MetricNames() []string {
	return sortedKeys(r.metrics)
}

// Artifact returns a copy of the named series.
func (r *EvalResult) Artifact(name string) (Series, bool) {
	s, ok := r.artifacts[name]
	if !ok {
		return nil, false
	}
	return append(Series(nil), s...), true
}

// ArtifactNames returns artifact names sorted.
func (r *EvalResult) ArtifactNames() []string {
	return sortedKeys(r.artifacts)
}

// Notes returns a copy of evaluator notes (warnings, exclusions).
func (r *EvalResult) Notes() map[string]string {
	out := make(map[string]string, len(r.notes))
	for k, v := range r.notes {
		out[k] = v
	}
	return out
}

// EvalRecord is the JSON form of an EvalResult. Non-finite numbers become null.
type EvalRecord struct {
	Factor    string                   `json:"factor"`
	Evaluator string                   `json:"evaluator"`
	Horizon   int                      `json:"horizon"`
	Metrics   map[string]*float64      `json:"metrics"`
	Artifacts map[string][]PointRecord `json:"artifacts,omitempty"`
	Notes     map[string]string        `json:"notes,omitempty"`
}

// PointRecord is the JSON form of a Point.
type PointRecord struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// Record converts the result to its JSON form. Artifacts are omitted unless withArtifacts.
func (r *EvalResult) Record(withArtifacts bool) EvalRecord {
	rec := EvalRecord{
		Factor:    r.factor,
		Evaluator: r.evaluator,
		Horizon:   r.horizon,
		Metrics:   make(map[string]*float64, len(r.metrics)),
		Notes:     r.Notes(),
	}
	for k, v := range r.metrics {
		rec.Metrics[k] = finite(v)
	}
	if withArtifacts {
		rec.Artifacts = make(map[string][]PointRecord, len(r.artifacts))
		for name, s := range r.artifacts {
			points := make([]PointRecord, len(s))
			for i, p := range s {
				points[i] = PointRecord{Date: p.Date, Value: finite(p.Value)}
			}
			rec.Artifacts[name] = points
		}
	}
	return rec
}

// Result converts a record back to an EvalResult; null becomes NaN.
func (rec EvalRecord) Result() *EvalResult {
	metrics := make(map[string]float64, len(rec.Metrics))
	for k, v := range rec.Metrics {
		metrics[k] = orNaN(v)
	}
	artifacts := make(map[string]Series, len(rec.Artifacts))
	for name, points := range rec.Artifacts {
		s := make(Series, len(points))
		for i, p := range points {
			s[i] = Point{Date: p.Date, Value: orNaN(p.Value)}
		}
		artifacts[name] = s
	}
	return NewEvalResult(rec.Factor, rec.Evaluator, rec.Horizon, metrics, artifacts, rec.Notes)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

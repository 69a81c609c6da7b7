package contracts

import (
	"context"
	"math"
	"time"
)

// FactorSeries holds one scalar per (date, entity). Absent keys and NaN are undefined.
type FactorSeries struct {
	Name   string
	Values map[Key]float64
}

// NewFactorSeries returns an empty series.
func NewFactorSeries(name string) FactorSeries {
	return FactorSeries{Name: name, Values: make(map[Key]float64)}
}

// Set stores a value under the normalized key.
func (f FactorSeries) Set(date time.Time, entity string, v float64) {
	f.Values[KeyOf(date, entity)] = v
}

// Get returns the value at k; undefined values report false.
func (f FactorSeries) Get(k Key) (float64, bool) {
	v, ok := f.Values[KeyOf(k.Date, k.Entity)]
	if !ok || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}

// Len returns the number of stored keys, defined or not.
func (f FactorSeries) Len() int {
	return len(f.Values)
}

// SignalProvider produces a factor series from a panel.
// The evaluation engine only relies on this contract, never on concrete factor types.
type SignalProvider interface {
	Name() string
	RequiredFields() []string
	Compute(ctx context.Context, panel *Panel) (FactorSeries, error)
}

// FactorSpec is the persisted computation reference of a factor:
// a provider kind plus parameters, resolved by the factor factory.
type FactorSpec struct {
	Name        string             `json:"name" yaml:"name"`
	Provider    string             `json:"provider" yaml:"provider"`
	Version     string             `json:"version" yaml:"version"`
	Params      map[string]float64 `json:"params,omitempty" yaml:"params"`
	Description string             `json:"description,omitempty" yaml:"description"`
	Tags        []string           `json:"tags,omitempty" yaml:"tags"`
}

package library

import (
	"math"
	"time"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// Source tells how an entry got into the library.
type Source string

const (
	SourceManual Source = "manual"
	SourceAuto   Source = "auto"
)

// FactorEntry is one admitted factor version.
// AdmittedHorizon is 0 for manual entries.
type FactorEntry struct {
	Name            string             `json:"name"`
	Version         string             `json:"version"`
	Provider        string             `json:"provider"`
	Params          map[string]float64 `json:"params,omitempty"`
	Source          Source             `json:"source"`
	Tags            []string           `json:"tags,omitempty"`
	Description     string             `json:"description,omitempty"`
	AdmittedHorizon int                `json:"admitted_horizon,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// NewEntry builds an entry from a factor spec. Only finite metrics are kept.
func NewEntry(spec contracts.FactorSpec, source Source, horizon int, metrics map[string]float64) FactorEntry {
	e := FactorEntry{
		Name:            spec.Name,
		Version:         versionOf(spec),
		Provider:        spec.Provider,
		Source:          source,
		Description:     spec.Description,
		AdmittedHorizon: horizon,
		CreatedAt:       time.Now().UTC(),
	}
	if len(spec.Params) > 0 {
		e.Params = make(map[string]float64, len(spec.Params))
		for k, v := range spec.Params {
			e.Params[k] = v
		}
	}
	if len(spec.Tags) > 0 {
		e.Tags = append([]string(nil), spec.Tags...)
	}
	for k, v := range metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if e.Metrics == nil {
			e.Metrics = make(map[string]float64)
		}
		e.Metrics[k] = v
	}
	return e
}

// Spec converts the entry back into a buildable factor spec.
func (e FactorEntry) Spec() contracts.FactorSpec {
	return contracts.FactorSpec{
		Name:        e.Name,
		Provider:    e.Provider,
		Version:     e.Version,
		Params:      e.Params,
		Description: e.Description,
		Tags:        e.Tags,
	}
}

func versionOf(spec contracts.FactorSpec) string {
	if spec.Version == "" {
		return "v1"
	}
	return spec.Version
}

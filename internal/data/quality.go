package data

import (
	"sort"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// QualityConfig holds panel quality thresholds
type QualityConfig struct {
	MinPriceCoverage float64 `yaml:"min_price_coverage" json:"min_price_coverage"` // share of date x entity cells with a price
	MinCrossSection  int     `yaml:"min_cross_section" json:"min_cross_section"`   // entities with a price per date
}

// DefaultQualityConfig mirrors the evaluation defaults
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{MinPriceCoverage: 0.9, MinCrossSection: 3}
}

// QualitySnapshot describes how complete a panel is
type QualitySnapshot struct {
	Dates     int                `json:"dates"`
	Entities  int                `json:"entities"`
	Coverage  map[string]float64 `json:"coverage"`   // field -> defined cells / (dates x entities)
	ThinDates int                `json:"thin_dates"` // dates under MinCrossSection priced entities
	Score     float64            `json:"score"`      // mean coverage over the checked fields
	Passed    bool               `json:"passed"`
}

// QualityGate checks a panel before evaluation
type QualityGate struct {
	config QualityConfig
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config QualityConfig) *QualityGate {
	return &QualityGate{config: config}
}

// Check measures field coverage over the full date x entity grid. The price field
// is always checked; fields adds more.
func (g *QualityGate) Check(panel *contracts.Panel, priceField string, fields ...string) *QualitySnapshot {
	dates := panel.Dates()
	entities := panel.Entities()
	snapshot := &QualitySnapshot{
		Dates:    len(dates),
		Entities: len(entities),
		Coverage: make(map[string]float64),
	}

	checked := append([]string{priceField}, fields...)
	sort.Strings(checked[1:])

	defined := make(map[string]int, len(checked))
	pricedPerDate := make(map[int64]int, len(dates))
	for i := 0; i < panel.Len(); i++ {
		row := panel.Row(i)
		for _, f := range checked {
			if _, ok := row.Value(f); ok {
				defined[f]++
			}
		}
		if _, ok := row.Value(priceField); ok {
			pricedPerDate[row.Date.Unix()]++
		}
	}

	cells := float64(len(dates) * len(entities))
	var total float64
	for _, f := range checked {
		cov := 0.0
		if cells > 0 {
			cov = float64(defined[f]) / cells
		}
		snapshot.Coverage[f] = cov
		total += cov
	}
	snapshot.Score = total / float64(len(checked))

	for _, d := range dates {
		if pricedPerDate[d.Unix()] < g.config.MinCrossSection {
			snapshot.ThinDates++
		}
	}

	snapshot.Passed = cells > 0 &&
		snapshot.Coverage[priceField] >= g.config.MinPriceCoverage &&
		snapshot.ThinDates < len(dates)
	return snapshot
}

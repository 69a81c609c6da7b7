package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

func TestQualityGate_Check(t *testing.T) {
	panel, err := NewCSVSource("testdata/prices.csv", nil).Load(context.Background(), contracts.PanelQuery{})
	require.NoError(t, err)

	gate := NewQualityGate(QualityConfig{MinPriceCoverage: 0.8, MinCrossSection: 3})
	snap := gate.Check(panel, "close", "volume")

	assert.Equal(t, 3, snap.Dates)
	assert.Equal(t, 3, snap.Entities)
	assert.InDelta(t, 8.0/9.0, snap.Coverage["close"], 1e-12)
	assert.InDelta(t, 1.0, snap.Coverage["volume"], 1e-12)
	assert.Equal(t, 1, snap.ThinDates, "2024-01-03 has two priced entities")
	assert.True(t, snap.Passed)

	strict := NewQualityGate(QualityConfig{MinPriceCoverage: 0.95, MinCrossSection: 3})
	assert.False(t, strict.Check(panel, "close").Passed)
}

func TestQualityGate_EmptyPanel(t *testing.T) {
	panel, err := contracts.NewPanel(nil)
	require.NoError(t, err)

	snap := NewQualityGate(DefaultQualityConfig()).Check(panel, "close")
	assert.False(t, snap.Passed)
	assert.Zero(t, snap.Coverage["close"])
}

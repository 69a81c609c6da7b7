package evaluation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

func day(d int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

// pricePanel builds a panel from entity -> close prices on consecutive days.
func pricePanel(t *testing.T, closes map[string][]float64) *contracts.Panel {
	t.Helper()
	var rows []contracts.Row
	for entity, prices := range closes {
		for i, p := range prices {
			rows = append(rows, contracts.Row{
				Date:   day(i),
				Entity: entity,
				Fields: map[string]float64{"close": p},
			})
		}
	}
	p, err := contracts.NewPanel(rows)
	require.NoError(t, err)
	return p
}

// randomPanel builds a panel of random-walk prices for n entities over d days.
func randomPanel(t *testing.T, n, d int, seed int64) *contracts.Panel {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var rows []contracts.Row
	for e := 0; e < n; e++ {
		price := 100.0
		entity := string(rune('A'+e%26)) + string(rune('a'+e/26))
		for i := 0; i < d; i++ {
			rows = append(rows, contracts.Row{
				Date:   day(i),
				Entity: entity,
				Fields: map[string]float64{"close": price, "volume": 1000 + rng.Float64()*100},
			})
			price *= 1 + rng.NormFloat64()*0.02
		}
	}
	p, err := contracts.NewPanel(rows)
	require.NoError(t, err)
	return p
}

// noisyOracle returns a factor equal to the horizon forward return plus noise.
func noisyOracle(t *testing.T, panel *contracts.Panel, horizon int, noise float64, seed int64) contracts.FactorSeries {
	t.Helper()
	fwd, err := ForwardReturns(panel, "close", horizon, SimpleReturn)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	f := contracts.NewFactorSeries("oracle")
	for i := 0; i < panel.Len(); i++ {
		k := panel.Row(i).Key()
		if r, ok := fwd[k]; ok {
			f.Set(k.Date, k.Entity, r+rng.NormFloat64()*noise)
		}
	}
	return f
}

package preprocess

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairSentinel/internal/config"
	"PairSentinel/internal/model"
)

func defaultOptions() Options {
	return OptionsFrom(config.DefaultAnalysis())
}

func seriesFromCloses(symbol string, closes []float64) model.PriceSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:  start.AddDate(0, 0, i),
			Open:  c,
			High:  c * 1.01,
			Low:   c * 0.99,
			Close: c,
		}
	}
	return model.NewPriceSeries(symbol, bars)
}

func TestSeries_WhiteNoiseNeedsNoDifferencing(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := make([]float64, 250)
	for i := range x {
		x[i] = 50 + rng.NormFloat64()
	}
	s := Series(x, defaultOptions())
	assert.Equal(t, 0, s.DifferencingOrder)
	assert.True(t, s.IsStationary)
	assert.Less(t, s.ADFPValue, 0.05)
	assert.Equal(t, x, s.Raw)
	assert.Equal(t, x, s.Series)
}

func TestSeries_RandomWalkWithDriftNeedsOneDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := make([]float64, 250)
	x[0] = 10
	for i := 1; i < len(x); i++ {
		x[i] = x[i-1] + 1 + 0.1*rng.NormFloat64()
	}
	s := Series(x, defaultOptions())
	assert.Equal(t, 1, s.DifferencingOrder)
	assert.True(t, s.IsStationary)
	assert.Len(t, s.Series, len(x)-1)
	assert.Len(t, s.Raw, len(x))
}

func TestSeries_ExplosiveStopsAtMaxDifferencing(t *testing.T) {
	x := make([]float64, 120)
	for i := range x {
		x[i] = 10 * math.Exp(0.03*float64(i))
	}
	s := Series(x, defaultOptions())
	assert.Equal(t, 2, s.DifferencingOrder)
	assert.False(t, s.IsStationary)
	assert.Len(t, s.Series, len(x)-2)
}

func TestPreprocess_SkipsShortSymbols(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	long := make([]float64, 100)
	for i := range long {
		long[i] = 20 + rng.NormFloat64()
	}
	bars := map[string]model.PriceSeries{
		"PETR4": seriesFromCloses("PETR4", long),
		"VALE3": seriesFromCloses("VALE3", long[:10]),
	}

	pre := Preprocess(bars, defaultOptions())
	require.Contains(t, pre, "PETR4")
	assert.NotContains(t, pre, "VALE3")

	for _, f := range model.Fields {
		s, ok := pre.Get("PETR4", f)
		require.True(t, ok, "field %s", f)
		assert.Len(t, s.Raw, 100)
		assert.Equal(t, bars["PETR4"].LastTime(), s.AsOf)
	}
	_, ok := pre.Get("VALE3", model.FieldClose)
	assert.False(t, ok)
}

func TestPreprocess_Empty(t *testing.T) {
	pre := Preprocess(map[string]model.PriceSeries{}, defaultOptions())
	assert.Empty(t, pre)
}

package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"PairSentinel/internal/collector"
	"PairSentinel/internal/config"
	"PairSentinel/internal/model"
	"PairSentinel/internal/preprocess"
)

func ptr(v float64) *float64 { return &v }

// cointegratedPair is B = 0.5*A + 50 with A white noise around 100.
func cointegratedPair(bars int, lastSpread float64) collector.SyntheticPair {
	return collector.SyntheticPair{
		Seed:        42,
		Bars:        bars,
		Base:        100,
		Noise:       10,
		Hedge:       0.5,
		Offset:      50,
		SpreadNoise: 0.5,
		LastA:       ptr(3),
		LastSpread:  ptr(lastSpread),
		Timeframe:   model.D1,
	}
}

func seriesOf(pairs map[string]collector.SyntheticPair) map[string]model.PriceSeries {
	out := make(map[string]model.PriceSeries)
	for names, sp := range pairs {
		a, b := sp.Generate()
		out[names[:1]] = model.NewPriceSeries(names[:1], a)
		out[names[1:]] = model.NewPriceSeries(names[1:], b)
	}
	return out
}

// pairBars returns the legs of sp under the symbols A and B.
func pairBars(sp collector.SyntheticPair) map[string]model.PriceSeries {
	return seriesOf(map[string]collector.SyntheticPair{"AB": sp})
}

func testAnalysis(deps, inds []string) config.Analysis {
	a := config.DefaultAnalysis()
	a.UniverseDependent = deps
	a.UniverseIndependent = inds
	return a
}

func preprocessed(t *testing.T, bars map[string]model.PriceSeries, a config.Analysis) model.Preprocessed {
	t.Helper()
	pre := preprocess.Preprocess(bars, preprocess.OptionsFrom(a))
	require.Len(t, pre, len(bars))
	return pre
}

func noFilters() config.Filters {
	f := config.DefaultFilters()
	f.EnableZScore = false
	f.EnableR2 = false
	f.EnableBeta = false
	f.EnableCointegration = false
	f.EnableADF = false
	f.EnableHalfLife = false
	return f
}

package strategy

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/collector"
	"PairSentinel/internal/config"
	"PairSentinel/internal/model"
)

func shockedAnalysis() config.Analysis {
	a := testAnalysis([]string{"B"}, []string{"A"})
	a.EnableZScore = false
	return a
}

func refineShocked(t *testing.T, shock float64) ([]model.RefinedRow, RefineStats, model.Preprocessed) {
	t.Helper()
	a := shockedAnalysis()
	pre := preprocessed(t, pairBars(cointegratedPair(300, shock)), a)
	cands, _, err := SelectFirstStage(context.Background(), a.UniverseDependent, a.UniverseIndependent, a.Lookbacks, pre, a)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	rows, stats := Refine(cands, pre, a)
	return rows, stats, pre
}

func TestRefine_NegativeShockGoesLong(t *testing.T) {
	rows, stats, pre := refineShocked(t, -20)
	require.Len(t, rows, 1, "skips: %v", stats.Skips)
	r := rows[0]

	assert.Equal(t, model.DirectionLong, r.Direction)
	assert.LessOrEqual(t, r.ZScore, -2.0)
	assert.Less(t, r.BetaRotation, r.BetaRotationMean)
	assert.Equal(t, r.SpreadBuy, r.EntryPrice)

	dep, _ := pre.Get("B", model.FieldClose)
	assert.Equal(t, dep.Last(), r.CurrentPrice)
	assert.InDelta(t, math.Abs(r.EntryPrice-r.CurrentPrice)/r.CurrentPrice*100, r.PercDiff, 1e-9)
	assert.Equal(t, r.PredictedResidual > r.ResidualCurrent, r.ReversionExpected)
	assert.Equal(t, 1, stats.Passed)
}

func TestRefine_PositiveShockGoesShort(t *testing.T) {
	rows, stats, _ := refineShocked(t, 20)
	require.Len(t, rows, 1, "skips: %v", stats.Skips)
	r := rows[0]

	assert.Equal(t, model.DirectionShort, r.Direction)
	assert.GreaterOrEqual(t, r.ZScore, 2.0)
	assert.Greater(t, r.BetaRotation, r.BetaRotationMean)
	assert.Equal(t, r.SpreadSell, r.EntryPrice)
	assert.Equal(t, r.PredictedResidual < r.ResidualCurrent, r.ReversionExpected)
}

func TestRefine_SpreadPricing(t *testing.T) {
	rows, _, _ := refineShocked(t, -20)
	require.Len(t, rows, 1)
	r := rows[0]
	a := shockedAnalysis()
	tol, tick := a.RefineTolerance, a.TickSize
	low, high := r.ForecastDep.Low, r.ForecastDep.High

	assert.Equal(t, calculator.RoundToTick(low*(1+tol), tick), r.SpreadBuy)
	assert.Equal(t, calculator.RoundToTick(high*(1-tol), tick), r.SpreadBuyGain)
	assert.Equal(t, calculator.RoundToTick(low*(1-tol), tick), r.SpreadBuyLoss)
	assert.Equal(t, calculator.RoundToTick(high*(1-tol), tick), r.SpreadSell)
	assert.Equal(t, calculator.RoundToTick(low*(1+tol), tick), r.SpreadSellGain)
	assert.Equal(t, calculator.RoundToTick(high*(1+tol), tick), r.SpreadSellLoss)

	assert.Less(t, r.SpreadBuyLoss, r.SpreadBuy)
	assert.Greater(t, r.SpreadSellLoss, r.SpreadSell)
	assert.Less(t, r.ForecastDep.Low, r.ForecastDep.High)
	assert.Greater(t, r.ForecastInd.Close, 0.0)
}

func TestRefine_NoShockHasNoDirection(t *testing.T) {
	a := testAnalysis([]string{"B"}, []string{"A"})
	pre := preprocessed(t, pairBars(cointegratedPair(300, 0)), a)
	cands, _, err := SelectFirstStage(context.Background(), a.UniverseDependent, a.UniverseIndependent, a.Lookbacks, pre, a)
	require.NoError(t, err)
	require.Len(t, cands, 1)

	rows, stats := Refine(cands, pre, a)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	assert.Equal(t, 1, stats.Skips[SkipNoDirection])
}

func TestRefine_RequireReversionGate(t *testing.T) {
	a := shockedAnalysis()
	pre := preprocessed(t, pairBars(cointegratedPair(300, -20)), a)
	cands, _, err := SelectFirstStage(context.Background(), a.UniverseDependent, a.UniverseIndependent, a.Lookbacks, pre, a)
	require.NoError(t, err)
	require.Len(t, cands, 1)

	// Pin the forecast away from the mean so reversion is not expected.
	c := cands[0]
	c.PredictedResidual = c.ResidualCurrent - 1
	a.RefineRequireReversion = true
	rows, stats := Refine([]model.CandidateRow{c}, pre, a)
	assert.Empty(t, rows)
	assert.Equal(t, 1, stats.Skips[SkipNoReversion])

	c.PredictedResidual = c.ResidualCurrent + 1
	rows, _ = Refine([]model.CandidateRow{c}, pre, a)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].ReversionExpected)
}

func TestRefine_InsufficientHistory(t *testing.T) {
	a := shockedAnalysis()
	pre := preprocessed(t, pairBars(cointegratedPair(300, -20)), a)
	cands, _, err := SelectFirstStage(context.Background(), a.UniverseDependent, a.UniverseIndependent, a.Lookbacks, pre, a)
	require.NoError(t, err)
	require.Len(t, cands, 1)

	a.RefineMinTrain = 400
	rows, stats := Refine(cands, pre, a)
	assert.Empty(t, rows)
	assert.Equal(t, 1, stats.Skips[SkipInsufficientHistory])

	a.RefineMinTrain = 70
	a.BetaWindow = 500
	rows, stats = Refine(cands, pre, a)
	assert.Empty(t, rows)
	assert.Equal(t, 1, stats.Skips[SkipInsufficientHistory])
}

func TestRefine_MissingSymbol(t *testing.T) {
	a := shockedAnalysis()
	pre := preprocessed(t, pairBars(cointegratedPair(300, -20)), a)
	c := model.CandidateRow{ID: 1, Dependent: "B", Independent: "GONE3", Lookback: 100}

	rows, stats := Refine([]model.CandidateRow{c}, pre, a)
	assert.Empty(t, rows)
	assert.Equal(t, 1, stats.Skips[SkipMissingData])
}

func TestRefine_CorrelationWithIndex(t *testing.T) {
	a := shockedAnalysis()
	bars := pairBars(cointegratedPair(300, -20))
	idx := collector.SyntheticPair{Seed: 99, Bars: 300, Base: 120000, Noise: 800, Hedge: 1}
	ibov, _ := idx.Generate()
	bars["^BVSP"] = model.NewPriceSeries("^BVSP", ibov)
	pre := preprocessed(t, bars, a)

	cands, _, err := SelectFirstStage(context.Background(), a.UniverseDependent, a.UniverseIndependent, a.Lookbacks, pre, a)
	require.NoError(t, err)
	require.Len(t, cands, 1)

	rows, _ := Refine(cands, pre, a)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].Correlation)

	a.MarketIndex = "^BVSP"
	rows, _ = Refine(cands, pre, a)
	require.Len(t, rows, 1)
	assert.NotEqual(t, 0.0, rows[0].Correlation)
	assert.GreaterOrEqual(t, rows[0].Correlation, -1.0)
	assert.LessOrEqual(t, rows[0].Correlation, 1.0)
}

func TestRefine_RanksByDistanceToEntry(t *testing.T) {
	second := cointegratedPair(300, 20)
	second.Seed = 1234
	second.Base = 20
	second.Noise = 2
	second.Offset = 5
	second.SpreadNoise = 0.1
	// The shock is in units of SpreadNoise.
	second.LastSpread = ptr(30)
	bars := seriesOf(map[string]collector.SyntheticPair{
		"AB": cointegratedPair(300, -20),
		"CD": second,
	})

	a := testAnalysis([]string{"B", "D"}, []string{"A", "C"})
	a.EnableZScore = false
	pre := preprocessed(t, bars, a)

	cands, _, err := SelectFirstStage(context.Background(), a.UniverseDependent, a.UniverseIndependent, a.Lookbacks, pre, a)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(cands), 2)

	rows, stats := Refine(cands, pre, a)
	require.GreaterOrEqual(t, len(rows), 2, "skips: %v", stats.Skips)
	pairs := make([]string, len(rows))
	for i, r := range rows {
		pairs[i] = r.Pair()
	}
	assert.Contains(t, pairs, "B/A")
	assert.Contains(t, pairs, "D/C")
	assert.True(t, sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i].PercDiff < rows[j].PercDiff }))
	for _, r := range rows {
		assert.NotEqual(t, model.DirectionNone, r.Direction)
	}
}

package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairSentinel/internal/config"
	"PairSentinel/internal/model"
)

func TestRun_CointegratedPairEndToEnd(t *testing.T) {
	bars := pairBars(cointegratedPair(300, 0))
	a := testAnalysis([]string{"A", "B"}, []string{"A", "B"})

	res, err := Run(context.Background(), bars, a)
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, "B/A", c.Pair())
	assert.Equal(t, 1, c.ID)
	assert.Greater(t, c.RSquared, 0.9)
	assert.Less(t, c.CointegrationPValue, 0.05)
	assert.Contains(t, a.Lookbacks, c.Lookback)

	// No shock, so the pair sits inside the band and gets no direction.
	assert.Empty(t, res.Refined)
	assert.Empty(t, res.Signals)
	assert.Equal(t, 1, res.Stats.Refine.Skips[SkipNoDirection])
	assert.Equal(t, 2, res.Stats.SymbolsRequested)
	assert.Equal(t, 2, res.Stats.SymbolsUsable)
	assert.Equal(t, 2, res.Stats.Selection.PairsTested)
}

func TestRun_ShockedPairProducesLongSignal(t *testing.T) {
	bars := pairBars(cointegratedPair(300, -20))
	a := testAnalysis([]string{"B"}, []string{"A"})
	a.EnableZScore = false
	a.Segments = map[string]string{"B": "Bancos"}

	res, err := Run(context.Background(), bars, a)
	require.NoError(t, err)
	require.Len(t, res.Refined, 1)
	require.Len(t, res.Signals, 1)

	s := res.Signals[0]
	assert.Equal(t, "B/A", s.Pair)
	assert.Equal(t, model.DirectionLong, s.Direction)
	assert.Equal(t, "Bancos", s.Segment)
	assert.Equal(t, bars["B"].LastTime(), s.Timestamp)
	assert.Equal(t, res.Refined[0].EntryPrice, s.EntryPrice)
	assert.Equal(t, res.Refined[0].ZScore, s.ZScore)
	assert.GreaterOrEqual(t, s.Confidence, 0.0)
	assert.LessOrEqual(t, s.Confidence, 95.0)
	assert.Equal(t, 1, res.Stats.Signals)
}

func TestRun_Idempotent(t *testing.T) {
	bars := pairBars(cointegratedPair(300, -20))
	a := testAnalysis([]string{"A", "B"}, []string{"A", "B"})
	a.EnableZScore = false

	first, err := Run(context.Background(), bars, a)
	require.NoError(t, err)
	second, err := Run(context.Background(), bars, a)
	require.NoError(t, err)

	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, first.Refined, second.Refined)
	assert.Equal(t, first.Signals, second.Signals)
}

func TestRun_UnknownSymbolsYieldEmptyTables(t *testing.T) {
	bars := pairBars(cointegratedPair(300, 0))
	a := testAnalysis([]string{"XPTO3"}, []string{"ABCD4"})

	res, err := Run(context.Background(), bars, a)
	require.NoError(t, err)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, res.Refined)
	assert.Empty(t, res.Signals)
	assert.Equal(t, 0, res.Stats.SymbolsUsable)
	assert.Equal(t, 2, res.Stats.SymbolsRequested)
}

func TestRun_InvalidConfig(t *testing.T) {
	bars := pairBars(cointegratedPair(120, 0))

	tests := []struct {
		name   string
		mutate func(a *config.Analysis)
		want   error
	}{
		{"empty universe", func(a *config.Analysis) {
			a.UniverseDependent = nil
			a.UniverseIndependent = nil
		}, config.ErrEmptyUniverse},
		{"no lookbacks", func(a *config.Analysis) { a.Lookbacks = nil }, config.ErrNoLookbacks},
		{"negative lookback", func(a *config.Analysis) { a.Lookbacks = []int{100, -5} }, config.ErrInvalidLookback},
		{"inverted band", func(a *config.Analysis) {
			a.ZScoreMin = 2
			a.ZScoreMax = -2
		}, config.ErrInvalidZScoreBand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAnalysis([]string{"B"}, []string{"A"})
			tt.mutate(&a)
			res, err := Run(context.Background(), bars, a)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	bars := pairBars(cointegratedPair(300, 0))
	a := testAnalysis([]string{"A", "B"}, []string{"A", "B"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, bars, a)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

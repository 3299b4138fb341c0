package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairSentinel/internal/collector"
	"PairSentinel/internal/config"
	"PairSentinel/internal/metrics"
	"PairSentinel/internal/model"
	"PairSentinel/internal/recorder"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureNotifier) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *captureNotifier) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

type captureRecorder struct {
	recorder.NoopRecorder
	snaps []*recorder.CycleSnapshot
}

func (c *captureRecorder) RecordCycle(snap *recorder.CycleSnapshot) error {
	c.snaps = append(c.snaps, snap)
	return nil
}

func testScheduler(t *testing.T) (*Scheduler, *captureNotifier, *captureRecorder) {
	t.Helper()
	lastA, lastSpread := 3.0, -20.0
	sp := collector.SyntheticPair{
		Seed: 42, Bars: 300, Base: 100, Noise: 10, Hedge: 0.5, Offset: 50, SpreadNoise: 0.5,
		LastA: &lastA, LastSpread: &lastSpread, Timeframe: model.D1,
	}
	col := collector.NewCollector(sp.Fetcher("VALE3", "BRAP4"), 30)

	a := config.DefaultAnalysis()
	a.UniverseDependent = []string{"BRAP4"}
	a.UniverseIndependent = []string{"VALE3"}
	a.EnableZScore = false

	n := &captureNotifier{}
	rec := &captureRecorder{}
	return NewScheduler(context.Background(), col, n, rec, metrics.NewRegistry(), a), n, rec
}

func TestScheduler_RunCycleNow(t *testing.T) {
	s, n, rec := testScheduler(t)

	res, err := s.RunCycleNow()
	require.NoError(t, err)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, "BRAP4/VALE3", res.Signals[0].Pair)
	assert.Equal(t, model.DirectionLong, res.Signals[0].Direction)

	last, at := s.Last()
	assert.Same(t, res, last)
	assert.False(t, at.IsZero())

	require.Len(t, rec.snaps, 1)
	assert.Equal(t, "mock", rec.snaps[0].Source)
	assert.NoError(t, rec.snaps[0].Err)

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "BRAP4/VALE3")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.CyclesTotal.WithLabelValues("ok")))
}

func TestScheduler_NoMarketDataGivesEmptyTables(t *testing.T) {
	s, n, rec := testScheduler(t)
	s.Collector = collector.NewCollector(&collector.MockFetcher{Errors: map[string]error{
		"BRAP4": collector.ErrNoData,
		"VALE3": collector.ErrNoData,
	}}, 30)

	res, err := s.RunCycleNow()
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, res.Refined)
	assert.Empty(t, res.Signals)
	assert.Equal(t, 0, res.Stats.SymbolsUsable)

	require.Len(t, rec.snaps, 1)
	assert.NoError(t, rec.snaps[0].Err)
	require.Len(t, n.messages(), 1)
	assert.NotContains(t, n.messages()[0], "Cycle failed")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.CyclesTotal.WithLabelValues("ok")))
}

func TestScheduler_FailedCycleIsRecorded(t *testing.T) {
	s, n, rec := testScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Ctx = ctx

	res, err := s.RunCycleNow()
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, rec.snaps, 1)
	assert.Error(t, rec.snaps[0].Err)
	require.Len(t, n.messages(), 1)
	assert.Contains(t, n.messages()[0], "Cycle failed")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.CycleFailures))

	last, _ := s.Last()
	assert.Nil(t, last)
}

func TestScheduler_RejectsOverlappingCycles(t *testing.T) {
	s, _, _ := testScheduler(t)
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	_, err := s.RunCycleNow()
	assert.ErrorIs(t, err, ErrCycleRunning)
	assert.Equal(t, "A cycle is already running.", s.HandleCommand(context.Background(), "/scan"))
	assert.Contains(t, s.HandleCommand(context.Background(), "/status"), "Cycle running: true")
}

func TestScheduler_SetAnalysis(t *testing.T) {
	s, _, _ := testScheduler(t)

	bad := s.Analysis()
	bad.Lookbacks = nil
	assert.ErrorIs(t, s.SetAnalysis(bad), config.ErrNoLookbacks)
	assert.NotEmpty(t, s.Analysis().Lookbacks)

	good := s.Analysis()
	good.Lookbacks = []int{100}
	require.NoError(t, s.SetAnalysis(good))
	good.Lookbacks[0] = 999
	assert.Equal(t, []int{100}, s.Analysis().Lookbacks)
}

func TestScheduler_HandleCommand(t *testing.T) {
	s, n, _ := testScheduler(t)
	ctx := context.Background()

	assert.Equal(t, "No cycle has completed yet.", s.HandleCommand(ctx, "/pairs"))
	assert.Equal(t, "No cycle has completed yet.", s.HandleCommand(ctx, "/signals"))
	assert.Contains(t, s.HandleCommand(ctx, "/status"), "Last cycle: never")

	assert.Empty(t, s.HandleCommand(ctx, "/scan@PairSentinelBot"))
	assert.Len(t, n.messages(), 1)

	assert.Contains(t, s.HandleCommand(ctx, "/pairs"), "BRAP4/VALE3")
	assert.Contains(t, s.HandleCommand(ctx, "/SIGNALS now"), "LONG")
	assert.Contains(t, s.HandleCommand(ctx, "/status"), "Data source: mock")
	assert.True(t, strings.HasPrefix(s.HandleCommand(ctx, "/help"), "Available commands"))
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/scan", commandName("/scan"))
	assert.Equal(t, "/pairs", commandName("/pairs@SomeBot 10"))
	assert.Equal(t, "", commandName("   "))
}

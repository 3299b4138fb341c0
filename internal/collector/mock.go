package collector

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"time"

	"PairSentinel/internal/model"
)

// syntheticStart anchors generated histories so runs are reproducible.
var syntheticStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without fixed bars get a random walk seeded by the symbol name.
type MockFetcher struct {
	Bars   map[string][]model.OHLCV
	Errors map[string]error
	Price  float64
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return trimBars(bars, count), nil
	}
	base := m.Price
	if base <= 0 {
		base = 30
	}
	return RandomWalk(symbolSeed(symbol), base, count, tf), nil
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}

// RandomWalk generates count bars of a multiplicative random walk.
func RandomWalk(seed int64, base float64, count int, tf model.Timeframe) []model.OHLCV {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, count)
	p := base
	for i := range closes {
		p *= 1 + rng.NormFloat64()*0.015
		closes[i] = p
	}
	return barsFromCloses(closes, tf)
}

// SyntheticPair describes two legs driven by a shared factor:
//
//	A[t] = Base + Noise*n[t]
//	B[t] = Hedge*A[t] + Offset + SpreadNoise*m[t]
//
// with n and m standard normal draws. LastA and LastSpread override the final
// draws, which lets tests place the last residual where they need it.
type SyntheticPair struct {
	Seed        int64
	Bars        int
	Base        float64
	Noise       float64
	Hedge       float64
	Offset      float64
	SpreadNoise float64
	LastA       *float64
	LastSpread  *float64
	Timeframe   model.Timeframe
}

// Generate returns the bars of both legs.
func (s SyntheticPair) Generate() (a, b []model.OHLCV) {
	if s.Bars <= 0 {
		return nil, nil
	}
	rng := rand.New(rand.NewSource(s.Seed))
	ca := make([]float64, s.Bars)
	cb := make([]float64, s.Bars)
	for i := 0; i < s.Bars; i++ {
		n, m := rng.NormFloat64(), rng.NormFloat64()
		if i == s.Bars-1 {
			if s.LastA != nil {
				n = *s.LastA
			}
			if s.LastSpread != nil {
				m = *s.LastSpread
			}
		}
		ca[i] = s.Base + s.Noise*n
		cb[i] = s.Hedge*ca[i] + s.Offset + s.SpreadNoise*m
	}
	return barsFromCloses(ca, s.Timeframe), barsFromCloses(cb, s.Timeframe)
}

// Fetcher serves the pair under the given symbols.
func (s SyntheticPair) Fetcher(symbolA, symbolB string) *MockFetcher {
	a, b := s.Generate()
	return &MockFetcher{
		Bars:   map[string][]model.OHLCV{symbolA: a, symbolB: b},
		Errors: map[string]error{},
	}
}

func barsFromCloses(closes []float64, tf model.Timeframe) []model.OHLCV {
	step := barStep(tf)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   syntheticStart.Add(time.Duration(i) * step),
			Open:   c * 0.999,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: 1000000,
		}
	}
	return bars
}

// ErrNoData is what a mock returns for a symbol configured to fail.
var ErrNoData = errors.New("mock: no data")

package collector

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"PairSentinel/internal/model"
)

const (
	defaultConcurrency = 4
	defaultMinCoverage = 0.8
)

// Collector fetches a universe and aligns it on common timestamps.
type Collector struct {
	Fetcher     Fetcher
	MinBars     int
	Concurrency int
	// MinCoverage is the fraction of the longest history a symbol must reach
	// to take part in alignment.
	MinCoverage float64
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, minBars int) *Collector {
	return &Collector{
		Fetcher:     fetcher,
		MinBars:     minBars,
		Concurrency: defaultConcurrency,
		MinCoverage: defaultMinCoverage,
	}
}

// Collect fetches count bars of every symbol. Failed, short or sparse symbols
// are dropped with a warning; the rest are cut to the timestamps they all
// share. A universe where nothing could be fetched yields an empty map.
func (c *Collector) Collect(ctx context.Context, symbols []string, tf model.Timeframe, count int) (map[string]model.PriceSeries, error) {
	limit := c.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var mu sync.Mutex
	fetched := make(map[string]model.PriceSeries, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			bars, err := c.Fetcher.FetchBars(gctx, symbol, tf, count)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("symbol", symbol).Str("source", c.Fetcher.Name()).Msg("fetch failed, skipping symbol")
				return nil
			}
			ps := model.NewPriceSeries(symbol, bars)
			if ps.Len() < c.MinBars {
				log.Warn().Str("symbol", symbol).Int("bars", ps.Len()).Int("min_bars", c.MinBars).Msg("short history, skipping symbol")
				return nil
			}
			mu.Lock()
			fetched[symbol] = ps
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	if len(fetched) == 0 {
		log.Warn().Int("requested", len(symbols)).Str("source", c.Fetcher.Name()).Msg("no market data fetched")
		return map[string]model.PriceSeries{}, nil
	}

	minCoverage := c.MinCoverage
	if minCoverage <= 0 {
		minCoverage = defaultMinCoverage
	}
	aligned := Align(DropSparse(fetched, minCoverage))
	log.Info().Int("requested", len(symbols)).Int("fetched", len(aligned)).Str("source", c.Fetcher.Name()).Msg("market data collected")
	return aligned, nil
}

// DropSparse removes series shorter than minCoverage times the longest one,
// so a newly listed or gappy symbol does not cut the others down to its length.
func DropSparse(series map[string]model.PriceSeries, minCoverage float64) map[string]model.PriceSeries {
	longest := 0
	for _, ps := range series {
		longest = max(longest, ps.Len())
	}
	need := int(math.Ceil(float64(longest) * minCoverage))
	out := make(map[string]model.PriceSeries, len(series))
	for symbol, ps := range series {
		if ps.Len() < need {
			log.Warn().Str("symbol", symbol).Int("bars", ps.Len()).Int("longest", longest).
				Msg("sparse history, skipping symbol")
			continue
		}
		out[symbol] = ps
	}
	return out
}

// Align keeps only the timestamps present in every series.
func Align(series map[string]model.PriceSeries) map[string]model.PriceSeries {
	counts := make(map[int64]int)
	for _, ps := range series {
		for _, t := range ps.Times {
			counts[t.UnixNano()]++
		}
	}
	out := make(map[string]model.PriceSeries, len(series))
	for symbol, ps := range series {
		bars := ps.Bars()
		kept := bars[:0:0]
		for _, b := range bars {
			if counts[b.Time.UnixNano()] == len(series) {
				kept = append(kept, b)
			}
		}
		out[symbol] = model.NewPriceSeries(symbol, kept)
	}
	return out
}

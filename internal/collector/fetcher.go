package collector

import (
	"context"
	"time"

	"PairSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns up to count bars of symbol, oldest first.
	FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error)
	Name() string
}

// barStep is the nominal spacing of bars for a timeframe.
func barStep(tf model.Timeframe) time.Duration {
	switch tf {
	case model.M1:
		return time.Minute
	case model.M5:
		return 5 * time.Minute
	case model.M15:
		return 15 * time.Minute
	case model.M30:
		return 30 * time.Minute
	case model.H1:
		return time.Hour
	case model.H4:
		return 4 * time.Hour
	case model.W1:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// trimBars keeps the last count bars.
func trimBars(bars []model.OHLCV, count int) []model.OHLCV {
	if count > 0 && len(bars) > count {
		return bars[len(bars)-count:]
	}
	return bars
}

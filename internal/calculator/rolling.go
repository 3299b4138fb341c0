package calculator

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// ZScore returns the standardized distance of the last value of x from the
// mean of x, using the sample standard deviation.
func ZScore(x []float64) (z, mean, std float64, err error) {
	if len(x) < 2 {
		return 0, 0, 0, fmt.Errorf("zscore: %w", ErrInsufficientData)
	}
	mean, std = stat.MeanStdDev(x, nil)
	if std == 0 || math.IsNaN(std) {
		return 0, mean, std, fmt.Errorf("zscore: zero dispersion: %w", ErrSingular)
	}
	return (x[len(x)-1] - mean) / std, mean, std, nil
}

// RollingBeta returns the slope of y on x for every trailing window of the
// given size, oldest first.
func RollingBeta(y, x []float64, window int) ([]float64, error) {
	if len(y) != len(x) {
		return nil, fmt.Errorf("rolling beta: length mismatch %d != %d", len(y), len(x))
	}
	if window < 3 || len(y) < window {
		return nil, fmt.Errorf("rolling beta: window %d over %d points: %w", window, len(y), ErrInsufficientData)
	}
	out := make([]float64, 0, len(y)-window+1)
	for end := window; end <= len(y); end++ {
		_, beta := stat.LinearRegression(x[end-window:end], y[end-window:end], nil, false)
		if math.IsNaN(beta) || math.IsInf(beta, 0) {
			return nil, fmt.Errorf("rolling beta: flat window ending at %d: %w", end, ErrSingular)
		}
		out = append(out, beta)
	}
	return out, nil
}

// TrailingMeanStd returns the last value of the moving average and moving
// standard deviation of x over the given period.
func TrailingMeanStd(x []float64, period int) (mean, std float64, err error) {
	if period < 2 || len(x) < period {
		return 0, 0, fmt.Errorf("trailing mean/std: period %d over %d points: %w", period, len(x), ErrInsufficientData)
	}
	sma := helper.ChanToSlice(trend.NewSmaWithPeriod[float64](period).Compute(helper.SliceToChan(x)))
	msd := helper.ChanToSlice(volatility.NewMovingStdWithPeriod[float64](period).Compute(helper.SliceToChan(x)))
	if len(sma) == 0 || len(msd) == 0 {
		return 0, 0, fmt.Errorf("trailing mean/std: %w", ErrInsufficientData)
	}
	return sma[len(sma)-1], msd[len(msd)-1], nil
}

// Correlation returns the Pearson correlation of the last n points of x and y.
func Correlation(x, y []float64, n int) float64 {
	x, y = Tail(x, n), Tail(y, n)
	if len(x) != len(y) || len(x) < 3 {
		return 0
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}

// RoundToTick rounds a price to the nearest multiple of tick.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	t := decimal.NewFromFloat(tick)
	return decimal.NewFromFloat(price).Div(t).Round(0).Mul(t).InexactFloat64()
}

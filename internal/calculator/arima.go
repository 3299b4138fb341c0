package calculator

import (
	"fmt"
	"math"
)

// Forecast is a one-step-ahead point forecast with its residual standard error.
type Forecast struct {
	Mean   float64
	StdErr float64
}

// ARIMAForecast fits an ARIMA(p, d, 0) model with constant by conditional least
// squares and forecasts the next value of x on the original scale.
func ARIMAForecast(x []float64, p, d int) (Forecast, error) {
	if p < 0 || d < 0 {
		return Forecast{}, fmt.Errorf("arima: invalid order (%d,%d,0)", p, d)
	}
	// Keep the last value of each differencing level to integrate back.
	lasts := make([]float64, 0, d)
	w := x
	for i := 0; i < d; i++ {
		if len(w) == 0 {
			return Forecast{}, fmt.Errorf("arima: %w", ErrInsufficientData)
		}
		lasts = append(lasts, w[len(w)-1])
		w = Diff(w)
	}
	if len(w) < p+10 {
		return Forecast{}, fmt.Errorf("arima: %d points for AR(%d): %w", len(w), p, ErrInsufficientData)
	}

	m := len(w) - p
	y := make([]float64, m)
	lags := make([][]float64, p)
	for j := range lags {
		lags[j] = make([]float64, m)
	}
	for i := 0; i < m; i++ {
		t := p + i
		y[i] = w[t]
		for j := 0; j < p; j++ {
			lags[j][i] = w[t-j-1]
		}
	}

	var next, se float64
	if p == 0 {
		var sum float64
		for _, v := range w {
			sum += v
		}
		next = sum / float64(len(w))
		var ss float64
		for _, v := range w {
			ss += (v - next) * (v - next)
		}
		se = math.Sqrt(ss / float64(len(w)-1))
	} else {
		fit, err := OLS(y, true, lags...)
		if err != nil {
			return Forecast{}, fmt.Errorf("arima: %w", err)
		}
		next = fit.Coef[0]
		for j := 0; j < p; j++ {
			next += fit.Coef[j+1] * w[len(w)-1-j]
		}
		se = math.Sqrt(fit.SSR / float64(fit.N-fit.K))
	}

	for i := d - 1; i >= 0; i-- {
		next += lasts[i]
	}
	if math.IsNaN(next) || math.IsInf(next, 0) {
		return Forecast{}, fmt.Errorf("arima: non-finite forecast: %w", ErrSingular)
	}
	return Forecast{Mean: next, StdErr: se}, nil
}

// HalfLife fits resid[t] = c + phi*resid[t-1] and returns phi with the
// mean-reversion half-life -ln(2)/ln(phi). Outside 0 < phi < 1 the half-life is
// undefined and reported as +Inf.
func HalfLife(resid []float64) (phi, halfLife float64, err error) {
	if len(resid) < 3 {
		return 0, 0, fmt.Errorf("half-life: %w", ErrInsufficientData)
	}
	fit, err := OLS(resid[1:], true, resid[:len(resid)-1])
	if err != nil {
		return 0, 0, fmt.Errorf("half-life: %w", err)
	}
	phi = fit.Coef[1]
	if phi <= 0 || phi >= 1 {
		return phi, math.Inf(1), nil
	}
	return phi, -math.Ln2 / math.Log(phi), nil
}

package calculator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ADFOptions configures the augmented Dickey-Fuller regression.
type ADFOptions struct {
	// Constant includes an intercept in the test regression.
	Constant bool
	// MaxLag caps the augmented lags; 0 or less selects ceil(12*(n/100)^0.25).
	MaxLag int
}

// ADFResult is the outcome of an augmented Dickey-Fuller test.
type ADFResult struct {
	Stat    float64
	PValue  float64
	UsedLag int
	NObs    int
}

// ADF runs the augmented Dickey-Fuller unit root test with the number of lags
// chosen by AIC. PValue is the MacKinnon approximation for a single series.
func ADF(x []float64, opts ADFOptions) (ADFResult, error) {
	res, err := adfStat(x, opts)
	if err != nil {
		return ADFResult{}, err
	}
	res.PValue = MacKinnonP(res.Stat, 1)
	return res, nil
}

func adfStat(x []float64, opts ADFOptions) (ADFResult, error) {
	n := len(x)
	ntrend := 0
	if opts.Constant {
		ntrend = 1
	}
	maxLag := opts.MaxLag
	if maxLag <= 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if limit := n/2 - ntrend - 1; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 || n < 10 {
		return ADFResult{}, fmt.Errorf("adf: %d points: %w", n, ErrInsufficientData)
	}

	dx := Diff(x)

	// Lag selection on a common sample so AIC values are comparable.
	bestLag, bestAIC := 0, math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		fit, err := adfRegression(x, dx, lag, maxLag, opts.Constant)
		if err != nil {
			continue
		}
		nobs := float64(fit.N)
		aic := nobs*math.Log(fit.SSR/nobs) + 2*float64(fit.K)
		if aic < bestAIC {
			bestAIC = aic
			bestLag = lag
		}
	}
	if math.IsInf(bestAIC, 1) {
		return ADFResult{}, fmt.Errorf("adf: no lag produced a valid regression: %w", ErrSingular)
	}

	fit, err := adfRegression(x, dx, bestLag, bestLag, opts.Constant)
	if err != nil {
		return ADFResult{}, fmt.Errorf("adf: %w", err)
	}
	idx := 0
	if opts.Constant {
		idx = 1
	}
	se := fit.StdErr[idx]
	if se == 0 || math.IsNaN(se) {
		return ADFResult{}, fmt.Errorf("adf: degenerate standard error: %w", ErrSingular)
	}
	stat := fit.Coef[idx] / se
	if math.IsNaN(stat) || math.IsInf(stat, 0) {
		return ADFResult{}, fmt.Errorf("adf: non-finite statistic: %w", ErrSingular)
	}
	return ADFResult{Stat: stat, UsedLag: bestLag, NObs: fit.N}, nil
}

// adfRegression fits dx[t] = c + gamma*x[t] + sum(phi_i*dx[t-i]) for t >= start.
func adfRegression(x, dx []float64, lag, start int, constant bool) (OLSResult, error) {
	m := len(dx) - start
	if m <= lag+2 {
		return OLSResult{}, ErrInsufficientData
	}
	y := make([]float64, m)
	level := make([]float64, m)
	lags := make([][]float64, lag)
	for j := range lags {
		lags[j] = make([]float64, m)
	}
	for i := 0; i < m; i++ {
		t := start + i
		y[i] = dx[t]
		level[i] = x[t]
		for j := 0; j < lag; j++ {
			lags[j][i] = dx[t-j-1]
		}
	}
	return OLS(y, constant, append([][]float64{level}, lags...)...)
}

// CointResult is the outcome of an Engle-Granger cointegration test.
type CointResult struct {
	Stat   float64
	PValue float64
	Beta   float64
}

// Coint runs the Engle-Granger two-step test of y0 against y1: a constant OLS
// fit, then an ADF test without constant on its residuals, scored against the
// two-variable MacKinnon surface.
func Coint(y0, y1 []float64, maxLag int) (CointResult, error) {
	if len(y0) != len(y1) {
		return CointResult{}, fmt.Errorf("coint: length mismatch %d != %d", len(y0), len(y1))
	}
	fit, err := OLS(y0, true, y1)
	if err != nil {
		return CointResult{}, fmt.Errorf("coint: %w", err)
	}
	res, err := adfStat(fit.Resid, ADFOptions{Constant: false, MaxLag: maxLag})
	if err != nil {
		return CointResult{}, fmt.Errorf("coint: %w", err)
	}
	return CointResult{Stat: res.Stat, PValue: MacKinnonP(res.Stat, 2), Beta: fit.Coef[1]}, nil
}

// MacKinnon (1994) response surface for regressions with a constant, indexed by
// the number of series (1 for ADF, 2 for a two-leg Engle-Granger test).
var (
	tauMaxC  = []float64{2.74, 0.92}
	tauMinC  = []float64{-18.83, -18.86}
	tauStarC = []float64{-1.61, -2.62}

	tauSmallC = [][]float64{
		{2.1659, 1.4412, 0.038269},
		{2.92, 1.5012, 0.039796},
	}
	tauLargeC = [][]float64{
		{1.7339, 0.93202, -0.12745, -0.010368},
		{2.1945, 0.64695, -0.29198, -0.042377},
	}
)

// MacKinnonP returns the approximate asymptotic p-value of a Dickey-Fuller
// statistic for nSeries integrated series.
func MacKinnonP(stat float64, nSeries int) float64 {
	i := nSeries - 1
	if i < 0 {
		i = 0
	}
	if i >= len(tauMaxC) {
		i = len(tauMaxC) - 1
	}
	if stat > tauMaxC[i] {
		return 1.0
	}
	if stat < tauMinC[i] {
		return 0.0
	}
	coef := tauLargeC[i]
	if stat <= tauStarC[i] {
		coef = tauSmallC[i]
	}
	var z, pow float64 = 0, 1
	for _, c := range coef {
		z += c * pow
		pow *= stat
	}
	return distuv.UnitNormal.CDF(z)
}

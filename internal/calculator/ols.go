package calculator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInsufficientData is returned when a series is too short for the requested fit.
	ErrInsufficientData = errors.New("not enough data")
	// ErrSingular is returned when a design matrix cannot be inverted.
	ErrSingular = errors.New("singular design matrix")
)

// OLSResult holds an ordinary least squares fit. Coef[0] is the intercept when
// the fit was made with a constant.
type OLSResult struct {
	Coef   []float64
	StdErr []float64
	Resid  []float64
	SSR    float64
	R2     float64
	N      int
	K      int
}

// OLS regresses y on the given regressors. When constant is true an intercept
// column is prepended. All regressors must have len(y) points.
func OLS(y []float64, constant bool, regressors ...[]float64) (OLSResult, error) {
	n := len(y)
	k := len(regressors)
	if constant {
		k++
	}
	if k == 0 {
		return OLSResult{}, fmt.Errorf("ols: no regressors")
	}
	if n <= k {
		return OLSResult{}, fmt.Errorf("ols: %d points for %d coefficients: %w", n, k, ErrInsufficientData)
	}
	for i, r := range regressors {
		if len(r) != n {
			return OLSResult{}, fmt.Errorf("ols: regressor %d has %d points, want %d", i, len(r), n)
		}
	}

	data := make([]float64, 0, n*k)
	for i := 0; i < n; i++ {
		if constant {
			data = append(data, 1)
		}
		for _, r := range regressors {
			data = append(data, r[i])
		}
	}
	return olsDense(y, mat.NewDense(n, k, data), constant)
}

func olsDense(y []float64, x *mat.Dense, constant bool) (OLSResult, error) {
	n, k := x.Dims()

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return OLSResult{}, fmt.Errorf("ols: %w: %v", ErrSingular, err)
	}

	yv := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)
	var coef mat.VecDense
	coef.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(x, &coef)

	res := OLSResult{
		Coef:   make([]float64, k),
		StdErr: make([]float64, k),
		Resid:  make([]float64, n),
		N:      n,
		K:      k,
	}
	for j := 0; j < k; j++ {
		res.Coef[j] = coef.AtVec(j)
	}

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	var sst float64
	for i := 0; i < n; i++ {
		res.Resid[i] = y[i] - fitted.AtVec(i)
		res.SSR += res.Resid[i] * res.Resid[i]
		if constant {
			d := y[i] - mean
			sst += d * d
		} else {
			sst += y[i] * y[i]
		}
	}

	sigma2 := res.SSR / float64(n-k)
	for j := 0; j < k; j++ {
		res.StdErr[j] = math.Sqrt(sigma2 * inv.At(j, j))
	}
	if sst > 0 {
		res.R2 = 1 - res.SSR/sst
	}

	for _, c := range res.Coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return OLSResult{}, fmt.Errorf("ols: non-finite coefficient: %w", ErrSingular)
		}
	}
	return res, nil
}

// Tail returns the last n values of x (all of x when it is shorter).
func Tail(x []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(x) <= n {
		return x
	}
	return x[len(x)-n:]
}

// Diff returns the first difference of x.
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

// Returns converts prices to simple returns, skipping non-positive bases.
func Returns(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		if x[i-1] != 0 {
			out[i-1] = x[i]/x[i-1] - 1
		}
	}
	return out
}

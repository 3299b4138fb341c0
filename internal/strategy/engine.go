package strategy

import (
	"math"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/config"
	"PairSentinel/internal/model"
)

// Rejection explains why a pair fit produced no result. The zero value means
// the fit was accepted.
type Rejection string

const (
	Accepted               Rejection = ""
	RejectInsufficientData Rejection = "insufficient_data"
	RejectNumerical        Rejection = "numerical"
	RejectR2               Rejection = "r2"
	RejectBeta             Rejection = "beta"
	RejectCointegration    Rejection = "cointegration"
	RejectADF              Rejection = "adf"
	RejectZScore           Rejection = "zscore"
	RejectHalfLife         Rejection = "half_life"
)

// minFitPoints is the smallest window the residual tests can run on.
const minFitPoints = 10

// FitPair regresses the dependent leg on the independent leg over the last
// lookback points and scores the residual spread. A nil result comes with the
// reason for rejection; rejections are the normal outcome for most pairs.
//
// market is optional; it is used as an extra regressor when f.MarketNeutral is set.
func FitPair(dep, ind model.PreprocessedSeries, market *model.PreprocessedSeries, lookback int, f config.Filters) (*model.PairResult, Rejection) {
	n := lookback
	if len(dep.Series) < n {
		n = len(dep.Series)
	}
	if len(ind.Series) < n {
		n = len(ind.Series)
	}
	if n < minFitPoints {
		return nil, RejectInsufficientData
	}
	y := calculator.Tail(dep.Series, n)
	x := calculator.Tail(ind.Series, n)

	regressors := [][]float64{x}
	useMarket := f.MarketNeutral && market != nil && len(market.Series) >= n
	if useMarket {
		regressors = append(regressors, calculator.Tail(market.Series, n))
	}
	fit, err := calculator.OLS(y, true, regressors...)
	if err != nil {
		return nil, RejectNumerical
	}

	res := &model.PairResult{
		Alpha:          fit.Coef[0],
		Beta:           fit.Coef[1],
		RSquared:       fit.R2,
		ResidualSeries: fit.Resid,
		NdDep:          dep.DifferencingOrder,
		NdInd:          ind.DifferencingOrder,
		NObs:           n,
	}
	if useMarket {
		res.MarketBeta = fit.Coef[2]
	}

	if f.EnableR2 && res.RSquared < f.R2Min {
		return nil, RejectR2
	}
	if f.EnableBeta && math.Abs(res.Beta) > f.BetaMax {
		return nil, RejectBeta
	}

	adf, err := calculator.ADF(fit.Resid, calculator.ADFOptions{Constant: true, MaxLag: f.ADFMaxLag})
	if err != nil {
		return nil, RejectNumerical
	}
	res.ADFPValue = adf.PValue

	rawN := n
	if len(dep.Raw) < rawN {
		rawN = len(dep.Raw)
	}
	if len(ind.Raw) < rawN {
		rawN = len(ind.Raw)
	}
	coint, err := calculator.Coint(calculator.Tail(dep.Raw, rawN), calculator.Tail(ind.Raw, rawN), f.ADFMaxLag)
	if err != nil {
		return nil, RejectNumerical
	}
	res.CointegrationPValue = coint.PValue

	if f.EnableCointegration && res.CointegrationPValue > f.CointMaxPValue {
		return nil, RejectCointegration
	}
	if f.EnableADF && res.ADFPValue > f.ADFMaxPValue {
		return nil, RejectADF
	}

	z, mean, std, err := calculator.ZScore(fit.Resid)
	if err != nil {
		return nil, RejectNumerical
	}
	res.ZScore = z
	res.ResidualMean = mean
	res.ResidualStd = std
	res.ResidualCurrent = fit.Resid[len(fit.Resid)-1]
	if f.EnableZScore && (z < f.ZScoreMin || z > f.ZScoreMax) {
		return nil, RejectZScore
	}

	_, hl, err := calculator.HalfLife(fit.Resid)
	if err != nil {
		return nil, RejectNumerical
	}
	res.HalfLife = hl
	if f.EnableHalfLife && hl > f.HalfLifeMax {
		return nil, RejectHalfLife
	}

	res.PredictedResidual = res.ResidualCurrent
	res.ForecastZScoreBuy = z
	res.ForecastZScoreSell = z
	if f.ForecastResidual {
		if fc, err := calculator.ARIMAForecast(fit.Resid, 1, 0); err == nil {
			res.PredictedResidual = fc.Mean
			res.ForecastZScoreBuy = (fc.Mean - fc.StdErr - mean) / std
			res.ForecastZScoreSell = (fc.Mean + fc.StdErr - mean) / std
		}
	}

	return res, Accepted
}

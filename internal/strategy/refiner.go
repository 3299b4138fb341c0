package strategy

import (
	"errors"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/config"
	"PairSentinel/internal/model"
)

// SkipReason explains why a candidate did not reach the refined table.
type SkipReason string

const (
	SkipMissingData         SkipReason = "missing_data"
	SkipInsufficientHistory SkipReason = "insufficient_history"
	SkipForecast            SkipReason = "forecast_failed"
	SkipNumerical           SkipReason = "numerical"
	SkipNoDirection         SkipReason = "no_direction"
	SkipNoReversion         SkipReason = "no_reversion"
)

// RefineStats counts the second stage outcome.
type RefineStats struct {
	Input  int                `json:"input"`
	Passed int                `json:"passed"`
	Skips  map[SkipReason]int `json:"skips"`
}

// Refine prices the first-stage candidates, gives each a direction and ranks
// them by distance between the proposed entry and the current price.
func Refine(candidates []model.CandidateRow, pre model.Preprocessed, a config.Analysis) ([]model.RefinedRow, RefineStats) {
	stats := RefineStats{Input: len(candidates), Skips: make(map[SkipReason]int)}
	out := []model.RefinedRow{}

	for _, c := range candidates {
		row, skip := refineOne(c, pre, a)
		if skip != "" {
			stats.Skips[skip]++
			log.Debug().Str("pair", c.Pair()).Str("reason", string(skip)).Msg("candidate dropped")
			continue
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PercDiff < out[j].PercDiff })
	stats.Passed = len(out)

	log.Info().Int("candidates", stats.Input).Int("refined", stats.Passed).Msg("second stage complete")
	return out, stats
}

func refineOne(c model.CandidateRow, pre model.Preprocessed, a config.Analysis) (model.RefinedRow, SkipReason) {
	row := model.RefinedRow{CandidateRow: c}

	depClose, ok1 := pre.Get(c.Dependent, model.FieldClose)
	indClose, ok2 := pre.Get(c.Independent, model.FieldClose)
	if !ok1 || !ok2 {
		return row, SkipMissingData
	}

	train := c.Lookback
	if a.RefineMinTrain > train {
		train = a.RefineMinTrain
	}
	if len(depClose.Raw) < a.RefineMinTrain || len(indClose.Raw) < a.RefineMinTrain {
		return row, SkipInsufficientHistory
	}

	var err error
	if row.ForecastDep, err = forecastLeg(pre, c.Dependent, train); err != nil {
		return row, SkipForecast
	}
	if row.ForecastInd, err = forecastLeg(pre, c.Independent, train); err != nil {
		return row, SkipForecast
	}

	tol, tick := a.RefineTolerance, a.TickSize
	low, high := row.ForecastDep.Low, row.ForecastDep.High
	row.SpreadBuy = calculator.RoundToTick(low*(1+tol), tick)
	row.SpreadBuyGain = calculator.RoundToTick(high*(1-tol), tick)
	row.SpreadBuyLoss = calculator.RoundToTick(low*(1-tol), tick)
	row.SpreadSell = calculator.RoundToTick(high*(1-tol), tick)
	row.SpreadSellGain = calculator.RoundToTick(low*(1+tol), tick)
	row.SpreadSellLoss = calculator.RoundToTick(high*(1+tol), tick)

	n := c.NObs
	if n > len(depClose.Series) || n > len(indClose.Series) {
		return row, SkipMissingData
	}
	betas, err := calculator.RollingBeta(calculator.Tail(depClose.Series, n), calculator.Tail(indClose.Series, n), a.BetaWindow)
	if err != nil {
		return row, rotationSkip(err)
	}
	row.BetaRotation = betas[len(betas)-1]
	row.BetaRotationMean, row.BetaRotationStd, err = calculator.TrailingMeanStd(betas, a.BetaWindow)
	if err != nil {
		return row, rotationSkip(err)
	}

	if mkt, ok := pre.Get(a.MarketIndex, model.FieldClose); ok && a.MarketIndex != "" {
		row.Correlation = calculator.Correlation(calculator.Returns(depClose.Raw), calculator.Returns(mkt.Raw), a.CorrelationWindow)
	}

	switch {
	case c.ZScore >= a.RefineZScore && row.BetaRotation > row.BetaRotationMean:
		row.Direction = model.DirectionShort
		row.ReversionExpected = c.PredictedResidual < c.ResidualCurrent
		row.EntryPrice = row.SpreadSell
	case c.ZScore <= -a.RefineZScore && row.BetaRotation < row.BetaRotationMean:
		row.Direction = model.DirectionLong
		row.ReversionExpected = c.PredictedResidual > c.ResidualCurrent
		row.EntryPrice = row.SpreadBuy
	default:
		return row, SkipNoDirection
	}
	if a.RefineRequireReversion && !row.ReversionExpected {
		return row, SkipNoReversion
	}

	row.CurrentPrice = depClose.Raw[len(depClose.Raw)-1]
	if row.CurrentPrice == 0 {
		return row, SkipNumerical
	}
	row.PercDiff = math.Abs(row.EntryPrice-row.CurrentPrice) / row.CurrentPrice * 100
	return row, ""
}

// forecastLeg forecasts the next close, high and low of one symbol from its
// last train raw values with ARIMA(1,1,0).
func forecastLeg(pre model.Preprocessed, symbol string, train int) (model.LegForecast, error) {
	var lf model.LegForecast
	for _, f := range []model.Field{model.FieldClose, model.FieldHigh, model.FieldLow} {
		s, ok := pre.Get(symbol, f)
		if !ok {
			return lf, calculator.ErrInsufficientData
		}
		fc, err := calculator.ARIMAForecast(calculator.Tail(s.Raw, train), 1, 1)
		if err != nil {
			return lf, err
		}
		switch f {
		case model.FieldClose:
			lf.Close = fc.Mean
		case model.FieldHigh:
			lf.High = fc.Mean
		case model.FieldLow:
			lf.Low = fc.Mean
		}
	}
	return lf, nil
}

func rotationSkip(err error) SkipReason {
	if errors.Is(err, calculator.ErrInsufficientData) {
		return SkipInsufficientHistory
	}
	return SkipNumerical
}

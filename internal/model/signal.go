package model

import "time"

// Direction is the trade intent for the dependent leg.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// PairResult is the output of one regression fit for (dependent, independent, lookback).
// HalfLife is +Inf when the residual AR(1) coefficient lies outside (0, 1).
type PairResult struct {
	Alpha               float64   `json:"alpha"`
	Beta                float64   `json:"beta"`
	MarketBeta          float64   `json:"market_beta"`
	HalfLife            float64   `json:"half_life"`
	ZScore              float64   `json:"zscore"`
	ResidualSeries      []float64 `json:"residual_series"`
	ResidualMean        float64   `json:"residual_mean"`
	ResidualStd         float64   `json:"residual_std"`
	ADFPValue           float64   `json:"adf_p_value"`
	PredictedResidual   float64   `json:"predicted_residual"`
	ResidualCurrent     float64   `json:"residual_current"`
	ForecastZScoreBuy   float64   `json:"forecast_zscore_buy"`
	ForecastZScoreSell  float64   `json:"forecast_zscore_sell"`
	NdDep               int       `json:"nd_dep"`
	NdInd               int       `json:"nd_ind"`
	CointegrationPValue float64   `json:"cointegration_p_value"`
	RSquared            float64   `json:"r_squared"`
	NObs                int       `json:"n_obs"`
}

// CandidateRow is the first-stage winner for one ordered pair.
type CandidateRow struct {
	ID          int       `json:"ID"`
	Dependent   string    `json:"dependente"`
	Independent string    `json:"independente"`
	Lookback    int       `json:"lookback"`
	AsOf        time.Time `json:"as_of"`
	PairResult
}

// Pair returns the "DEP/IND" label.
func (c CandidateRow) Pair() string {
	return c.Dependent + "/" + c.Independent
}

// LegForecast holds next-bar price forecasts for one leg.
type LegForecast struct {
	Close float64 `json:"previsao_fechamento"`
	High  float64 `json:"previsao_maximo"`
	Low   float64 `json:"previsao_minimo"`
}

// RefinedRow is a candidate that survived the second stage, priced and directed.
type RefinedRow struct {
	CandidateRow
	Direction Direction `json:"direction"`

	ForecastDep LegForecast `json:"previsao_dep"`
	ForecastInd LegForecast `json:"previsao_ind"`

	SpreadBuy      float64 `json:"spread_compra"`
	SpreadBuyGain  float64 `json:"spread_compra_gain"`
	SpreadBuyLoss  float64 `json:"spread_compra_loss"`
	SpreadSell     float64 `json:"spread_venda"`
	SpreadSellGain float64 `json:"spread_venda_gain"`
	SpreadSellLoss float64 `json:"spread_venda_loss"`

	BetaRotation     float64 `json:"beta_rotation"`
	BetaRotationMean float64 `json:"beta_rotation_mean"`
	BetaRotationStd  float64 `json:"beta_rotation_std"`
	Correlation      float64 `json:"correlacao"`

	CurrentPrice      float64 `json:"current_price"`
	ReversionExpected bool    `json:"reversion_expected"`
	EntryPrice        float64 `json:"Preco_Entrada_Final"`
	PercDiff          float64 `json:"Perc_Diferenca"`
}

// Signal is the directional trade intent handed to the execution harness and UI.
type Signal struct {
	Pair       string    `json:"pair"`
	Direction  Direction `json:"direction"`
	ZScore     float64   `json:"zscore"`
	Confidence float64   `json:"confidence"`
	EntryPrice float64   `json:"entry_price"`
	Segment    string    `json:"segment"`
	Timestamp  time.Time `json:"timestamp"`
}

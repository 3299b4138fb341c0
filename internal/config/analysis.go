package config

import (
	"errors"
	"fmt"
	"runtime"

	"PairSentinel/internal/model"
)

// Configuration errors returned by Analysis.Validate.
var (
	ErrEmptyUniverse     = errors.New("universe is empty")
	ErrNoLookbacks       = errors.New("lookback list is empty")
	ErrInvalidLookback   = errors.New("lookback must be positive")
	ErrInvalidZScoreBand = errors.New("zscore_min must not exceed zscore_max")
	ErrInvalidTolerance  = errors.New("refine_tolerance must be in [0, 1)")
	ErrInvalidMinTrain   = errors.New("refine_min_train is too small")
	ErrInvalidTimeframe  = errors.New("timeframe is not supported")
)

// Filters holds the pass/fail thresholds of the pair regression engine.
// Each filter is toggled independently.
type Filters struct {
	EnableZScore        bool `yaml:"enable_zscore_filter"`
	EnableR2            bool `yaml:"enable_r2_filter"`
	EnableBeta          bool `yaml:"enable_beta_filter"`
	EnableCointegration bool `yaml:"enable_cointegration_filter"`
	EnableADF           bool `yaml:"enable_adf_filter"`
	EnableHalfLife      bool `yaml:"enable_half_life_filter"`

	ZScoreMin      float64 `yaml:"zscore_min"`
	ZScoreMax      float64 `yaml:"zscore_max"`
	R2Min          float64 `yaml:"r2_min"`
	BetaMax        float64 `yaml:"beta_max"`
	CointMaxPValue float64 `yaml:"coint_max_pvalue"`
	ADFMaxPValue   float64 `yaml:"adf_max_pvalue"`
	HalfLifeMax    float64 `yaml:"half_life_max"`

	// MarketNeutral adds the market index as a second regressor.
	MarketNeutral    bool `yaml:"market_neutral"`
	ForecastResidual bool `yaml:"forecast_residual"`
	// ADFMaxLag caps the augmented lags; 0 selects ceil(12*(n/100)^0.25).
	ADFMaxLag int `yaml:"adf_max_lag"`
}

// Analysis is the flat configuration record of one analysis cycle. It is passed
// by value, so a running cycle never observes later edits.
type Analysis struct {
	UniverseDependent   []string          `yaml:"universe_dependent"`
	UniverseIndependent []string          `yaml:"universe_independent"`
	MarketIndex         string            `yaml:"market_index"`
	Segments            map[string]string `yaml:"segments"`
	Timeframe           model.Timeframe   `yaml:"timeframe"`
	BarCount            int               `yaml:"bar_count"`
	Lookbacks           []int             `yaml:"lookbacks"`

	Filters `yaml:",inline"`

	RefineTolerance        float64 `yaml:"refine_tolerance"`
	RefineMinTrain         int     `yaml:"refine_min_train"`
	RefineZScore           float64 `yaml:"refine_zscore"`
	RefineRequireReversion bool    `yaml:"refine_require_reversion"`
	BetaWindow             int     `yaml:"beta_window"`
	CorrelationWindow      int     `yaml:"correlation_window"`
	TickSize               float64 `yaml:"tick_size"`

	MinBars            int     `yaml:"min_bars"`
	MaxDifferencing    int     `yaml:"max_differencing"`
	StationarityPValue float64 `yaml:"stationarity_pvalue"`

	Workers int `yaml:"workers"`
}

// DefaultLookbacks returns the canonical lookback ladder.
func DefaultLookbacks() []int {
	return []int{70, 100, 120, 140, 160, 180, 200, 220, 240, 250}
}

// DefaultFilters returns the default thresholds with the four primary filters on.
func DefaultFilters() Filters {
	return Filters{
		EnableZScore:        true,
		EnableR2:            true,
		EnableBeta:          true,
		EnableCointegration: true,
		ZScoreMin:           -2.0,
		ZScoreMax:           2.0,
		R2Min:               0.50,
		BetaMax:             1.5,
		CointMaxPValue:      0.05,
		ADFMaxPValue:        0.05,
		HalfLifeMax:         50,
		ForecastResidual:    true,
	}
}

// DefaultAnalysis returns the analysis record with every documented default.
func DefaultAnalysis() Analysis {
	return Analysis{
		Segments:           map[string]string{},
		Timeframe:          model.D1,
		BarCount:           300,
		Lookbacks:          DefaultLookbacks(),
		Filters:            DefaultFilters(),
		RefineTolerance:    0.010,
		RefineMinTrain:     70,
		RefineZScore:       2.0,
		BetaWindow:         20,
		CorrelationWindow:  20,
		TickSize:           0.01,
		MinBars:            30,
		MaxDifferencing:    2,
		StationarityPValue: 0.05,
	}
}

// Validate fails fast on records the pipeline cannot run with. An empty result
// is never a configuration error.
func (a Analysis) Validate() error {
	if len(a.UniverseDependent) == 0 && len(a.UniverseIndependent) == 0 {
		return ErrEmptyUniverse
	}
	if len(a.Lookbacks) == 0 {
		return ErrNoLookbacks
	}
	for _, lb := range a.Lookbacks {
		if lb <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidLookback, lb)
		}
	}
	if a.ZScoreMin > a.ZScoreMax {
		return fmt.Errorf("%w: [%.2f, %.2f]", ErrInvalidZScoreBand, a.ZScoreMin, a.ZScoreMax)
	}
	if a.RefineTolerance < 0 || a.RefineTolerance >= 1 {
		return fmt.Errorf("%w: %.4f", ErrInvalidTolerance, a.RefineTolerance)
	}
	if a.RefineMinTrain < 10 {
		return fmt.Errorf("%w: %d", ErrInvalidMinTrain, a.RefineMinTrain)
	}
	if a.Timeframe != "" && !a.Timeframe.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidTimeframe, a.Timeframe)
	}
	return nil
}

// Symbols returns the union of both universes plus the market index, in first-seen order.
func (a Analysis) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range a.UniverseDependent {
		add(s)
	}
	for _, s := range a.UniverseIndependent {
		add(s)
	}
	add(a.MarketIndex)
	return out
}

// WorkerCount resolves the worker pool size.
func (a Analysis) WorkerCount() int {
	if a.Workers > 0 {
		return a.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Clone returns a deep copy, so a scheduler can hand out snapshots safely.
func (a Analysis) Clone() Analysis {
	c := a
	c.UniverseDependent = append([]string(nil), a.UniverseDependent...)
	c.UniverseIndependent = append([]string(nil), a.UniverseIndependent...)
	c.Lookbacks = append([]int(nil), a.Lookbacks...)
	c.Segments = make(map[string]string, len(a.Segments))
	for k, v := range a.Segments {
		c.Segments[k] = v
	}
	return c
}

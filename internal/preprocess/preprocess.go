// Package preprocess turns raw bars into stationarity-annotated series.
package preprocess

import (
	"github.com/rs/zerolog/log"

	"PairSentinel/internal/calculator"
	"PairSentinel/internal/config"
	"PairSentinel/internal/model"
)

// Options controls the iterative stationarity test.
type Options struct {
	MinBars         int
	MaxDifferencing int
	PValue          float64
	ADFMaxLag       int
}

// OptionsFrom extracts preprocessing options from an analysis record.
func OptionsFrom(a config.Analysis) Options {
	return Options{
		MinBars:         a.MinBars,
		MaxDifferencing: a.MaxDifferencing,
		PValue:          a.StationarityPValue,
		ADFMaxLag:       a.ADFMaxLag,
	}
}

// Preprocess annotates close, open, high and low of every symbol. Symbols with
// fewer than MinBars bars are left out.
func Preprocess(bars map[string]model.PriceSeries, opts Options) model.Preprocessed {
	out := make(model.Preprocessed, len(bars))
	for symbol, ps := range bars {
		if ps.Len() < opts.MinBars || ps.Len() == 0 {
			log.Warn().Str("symbol", symbol).Int("bars", ps.Len()).Int("min_bars", opts.MinBars).
				Msg("skipping symbol with insufficient bars")
			continue
		}
		fields := make(map[model.Field]model.PreprocessedSeries, len(model.Fields))
		for _, f := range model.Fields {
			s := Series(ps.Values(f), opts)
			s.AsOf = ps.LastTime()
			fields[f] = s
		}
		out[symbol] = fields
	}
	return out
}

// Series differences raw until the ADF test rejects a unit root or
// MaxDifferencing differences have been applied.
func Series(raw []float64, opts Options) model.PreprocessedSeries {
	s := model.PreprocessedSeries{
		Raw:       raw,
		Series:    raw,
		ADFPValue: 1,
	}
	for {
		res, err := calculator.ADF(s.Series, calculator.ADFOptions{Constant: true, MaxLag: opts.ADFMaxLag})
		if err == nil {
			s.ADFPValue = res.PValue
			s.IsStationary = res.PValue <= opts.PValue
		} else {
			s.ADFPValue = 1
			s.IsStationary = false
		}
		if s.IsStationary || s.DifferencingOrder >= opts.MaxDifferencing {
			return s
		}
		next := calculator.Diff(s.Series)
		if len(next) == 0 {
			return s
		}
		s.Series = next
		s.DifferencingOrder++
	}
}

package model

import (
	"sort"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Field names one of the four price sequences of a PriceSeries.
type Field string

const (
	FieldClose Field = "close"
	FieldOpen  Field = "open"
	FieldHigh  Field = "high"
	FieldLow   Field = "low"
)

// Fields lists every field the preprocessor annotates, in a fixed order.
var Fields = []Field{FieldClose, FieldOpen, FieldHigh, FieldLow}

// Timeframe is the bar period requested from the market data feed.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
	W1  Timeframe = "W1"
)

// Valid reports whether tf is one of the supported timeframes.
func (tf Timeframe) Valid() bool {
	switch tf {
	case M1, M5, M15, M30, H1, H4, D1, W1:
		return true
	}
	return false
}

// PriceSeries holds one symbol's OHLC history as parallel sequences.
type PriceSeries struct {
	Symbol string
	Times  []time.Time
	Close  []float64
	Open   []float64
	High   []float64
	Low    []float64
}

// NewPriceSeries builds a time-ordered series from bars. Bars sharing a timestamp
// keep only their first occurrence.
func NewPriceSeries(symbol string, bars []OHLCV) PriceSeries {
	sorted := make([]OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	ps := PriceSeries{
		Symbol: symbol,
		Times:  make([]time.Time, 0, len(sorted)),
		Close:  make([]float64, 0, len(sorted)),
		Open:   make([]float64, 0, len(sorted)),
		High:   make([]float64, 0, len(sorted)),
		Low:    make([]float64, 0, len(sorted)),
	}
	for i, b := range sorted {
		if i > 0 && b.Time.Equal(sorted[i-1].Time) {
			continue
		}
		ps.Times = append(ps.Times, b.Time)
		ps.Close = append(ps.Close, b.Close)
		ps.Open = append(ps.Open, b.Open)
		ps.High = append(ps.High, b.High)
		ps.Low = append(ps.Low, b.Low)
	}
	return ps
}

// Len returns the number of bars.
func (p PriceSeries) Len() int { return len(p.Times) }

// Values returns the sequence for the given field.
func (p PriceSeries) Values(f Field) []float64 {
	switch f {
	case FieldOpen:
		return p.Open
	case FieldHigh:
		return p.High
	case FieldLow:
		return p.Low
	default:
		return p.Close
	}
}

// LastTime returns the timestamp of the most recent bar, or the zero time.
func (p PriceSeries) LastTime() time.Time {
	if len(p.Times) == 0 {
		return time.Time{}
	}
	return p.Times[len(p.Times)-1]
}

// Bars rebuilds the bar slice, mostly for persistence and debugging.
func (p PriceSeries) Bars() []OHLCV {
	bars := make([]OHLCV, p.Len())
	for i := range bars {
		bars[i] = OHLCV{Time: p.Times[i], Open: p.Open[i], High: p.High[i], Low: p.Low[i], Close: p.Close[i]}
	}
	return bars
}

// PreprocessedSeries is one (symbol, field) sequence annotated for stationarity.
// Raw keeps the undifferenced values; Series holds Raw after DifferencingOrder
// first differences.
type PreprocessedSeries struct {
	Raw               []float64 `json:"raw"`
	Series            []float64 `json:"series"`
	DifferencingOrder int       `json:"differencing_order"`
	IsStationary      bool      `json:"is_stationary"`
	ADFPValue         float64   `json:"adf_p_value"`
	AsOf              time.Time `json:"as_of"`
}

// Last returns the latest raw value, or 0 for an empty series.
func (s PreprocessedSeries) Last() float64 {
	if len(s.Raw) == 0 {
		return 0
	}
	return s.Raw[len(s.Raw)-1]
}

// Preprocessed maps symbol to field to annotated series.
type Preprocessed map[string]map[Field]PreprocessedSeries

// Get returns the series for symbol and field.
func (p Preprocessed) Get(symbol string, f Field) (PreprocessedSeries, bool) {
	fields, ok := p[symbol]
	if !ok {
		return PreprocessedSeries{}, false
	}
	s, ok := fields[f]
	if !ok || len(s.Raw) == 0 {
		return PreprocessedSeries{}, false
	}
	return s, true
}

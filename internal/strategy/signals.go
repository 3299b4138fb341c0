package strategy

import (
	"math"

	"PairSentinel/internal/model"
)

const maxConfidence = 95.0

// ToSignals maps refined rows to signals, keeping their order.
func ToSignals(refined []model.RefinedRow, segments map[string]string) []model.Signal {
	out := make([]model.Signal, 0, len(refined))
	for _, r := range refined {
		out = append(out, model.Signal{
			Pair:       r.Pair(),
			Direction:  r.Direction,
			ZScore:     r.ZScore,
			Confidence: Confidence(r.RSquared, r.ADFPValue),
			EntryPrice: r.EntryPrice,
			Segment:    segments[r.Dependent],
			Timestamp:  r.AsOf,
		})
	}
	return out
}

// Confidence scores a fit in [0, 95] from its R² and residual ADF p-value.
// An uninformative p-value of 1 or more scores 50.
func Confidence(r2, adfPValue float64) float64 {
	if adfPValue >= 1 {
		return 50
	}
	c := r2 * 100 * (1 - adfPValue)
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(maxConfidence, c))
}

// Package strategy implements the two-stage pair selection pipeline.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"PairSentinel/internal/config"
	"PairSentinel/internal/model"
	"PairSentinel/internal/preprocess"
)

// Stats summarizes one pipeline run.
type Stats struct {
	SymbolsRequested int            `json:"symbols_requested"`
	SymbolsUsable    int            `json:"symbols_usable"`
	Selection        SelectionStats `json:"selection"`
	Refine           RefineStats    `json:"refine"`
	Signals          int            `json:"signals"`
	Duration         time.Duration  `json:"duration"`
}

// Result holds the three output tables of a run.
type Result struct {
	Candidates []model.CandidateRow `json:"first_stage"`
	Refined    []model.RefinedRow   `json:"second_stage"`
	Signals    []model.Signal       `json:"signals"`
	Stats      Stats                `json:"stats"`
}

// Run validates a, then preprocesses bars and runs both stages. Zero candidates
// is a normal result; only configuration errors and cancellation fail.
func Run(ctx context.Context, bars map[string]model.PriceSeries, a config.Analysis) (*Result, error) {
	start := time.Now()
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}

	pre := preprocess.Preprocess(bars, preprocess.OptionsFrom(a))
	stats := Stats{SymbolsRequested: len(a.Symbols())}
	for _, s := range a.Symbols() {
		if _, ok := pre[s]; ok {
			stats.SymbolsUsable++
		}
	}

	candidates, sel, err := SelectFirstStage(ctx, a.UniverseDependent, a.UniverseIndependent, a.Lookbacks, pre, a)
	if err != nil {
		return nil, fmt.Errorf("first stage: %w", err)
	}
	stats.Selection = sel

	refined, ref := Refine(candidates, pre, a)
	stats.Refine = ref

	signals := ToSignals(refined, a.Segments)
	stats.Signals = len(signals)
	stats.Duration = time.Since(start)

	log.Info().Int("usable_symbols", stats.SymbolsUsable).Int("candidates", len(candidates)).
		Int("refined", len(refined)).Int("signals", len(signals)).Dur("took", stats.Duration).
		Msg("pipeline complete")

	return &Result{
		Candidates: candidates,
		Refined:    refined,
		Signals:    signals,
		Stats:      stats,
	}, nil
}

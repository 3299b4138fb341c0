package strategy

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"PairSentinel/internal/config"
	"PairSentinel/internal/model"
)

// SelectionStats counts the work done by the first stage.
type SelectionStats struct {
	PairsTested   int               `json:"pairs_tested"`
	FitsAttempted int               `json:"fits_attempted"`
	Rejections    map[Rejection]int `json:"rejections"`
	Candidates    int               `json:"candidates"`
}

type pairKey struct {
	dep, ind string
}

type fitOutcome struct {
	res *model.PairResult
	rej Rejection
}

// SelectFirstStage fits every ordered pair over every lookback and keeps, per
// pair, the accepted fit with the largest |zscore|. Ties go to the lookback
// listed first. IDs follow dependent-major, independent-minor order.
//
// Symbols missing from pre are ignored. Only context cancellation is an error.
func SelectFirstStage(ctx context.Context, dependents, independents []string, lookbacks []int, pre model.Preprocessed, a config.Analysis) ([]model.CandidateRow, SelectionStats, error) {
	stats := SelectionStats{Rejections: make(map[Rejection]int)}

	var pairs []pairKey
	for _, dep := range dedupe(dependents) {
		if _, ok := pre.Get(dep, model.FieldClose); !ok {
			continue
		}
		for _, ind := range dedupe(independents) {
			if ind == dep {
				continue
			}
			if _, ok := pre.Get(ind, model.FieldClose); !ok {
				continue
			}
			pairs = append(pairs, pairKey{dep, ind})
		}
	}
	stats.PairsTested = len(pairs)
	out := []model.CandidateRow{}
	if len(pairs) == 0 || len(lookbacks) == 0 {
		return out, stats, nil
	}

	var market *model.PreprocessedSeries
	if m, ok := pre.Get(a.MarketIndex, model.FieldClose); ok && a.MarketIndex != "" {
		market = &m
	}

	// Each job writes only its own cell.
	grid := make([][]fitOutcome, len(pairs))
	for i := range grid {
		grid[i] = make([]fitOutcome, len(lookbacks))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.WorkerCount())
	for i, p := range pairs {
		dep, _ := pre.Get(p.dep, model.FieldClose)
		ind, _ := pre.Get(p.ind, model.FieldClose)
		for j, lb := range lookbacks {
			if gctx.Err() != nil {
				break
			}
			i, j, lb := i, j, lb
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, rej := FitPair(dep, ind, market, lb, a.Filters)
				grid[i][j] = fitOutcome{res: res, rej: rej}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	for i, p := range pairs {
		best := -1
		for j, o := range grid[i] {
			stats.FitsAttempted++
			if o.res == nil {
				stats.Rejections[o.rej]++
				continue
			}
			if best < 0 || math.Abs(o.res.ZScore) > math.Abs(grid[i][best].res.ZScore) {
				best = j
			}
		}
		if best < 0 {
			continue
		}
		dep, _ := pre.Get(p.dep, model.FieldClose)
		out = append(out, model.CandidateRow{
			ID:          len(out) + 1,
			Dependent:   p.dep,
			Independent: p.ind,
			Lookback:    lookbacks[best],
			AsOf:        dep.AsOf,
			PairResult:  *grid[i][best].res,
		})
	}
	stats.Candidates = len(out)

	log.Info().Int("pairs", stats.PairsTested).Int("fits", stats.FitsAttempted).
		Int("candidates", stats.Candidates).Msg("first stage complete")
	return out, stats, nil
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

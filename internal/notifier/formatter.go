package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"PairSentinel/internal/model"
	"PairSentinel/internal/strategy"
)

// FormatCycleReport summarizes one analysis cycle.
func FormatCycleReport(res *strategy.Result, when time.Time) string {
	var b strings.Builder
	st := res.Stats

	b.WriteString(fmt.Sprintf("📊 <b>PairSentinel</b> | %s\n\n", when.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Symbols: %d/%d usable\n", st.SymbolsUsable, st.SymbolsRequested))
	b.WriteString(fmt.Sprintf("Pairs tested: %d (%d fits)\n", st.Selection.PairsTested, st.Selection.FitsAttempted))
	b.WriteString(fmt.Sprintf("First stage: %d | Second stage: %d | Signals: %d\n",
		len(res.Candidates), len(res.Refined), len(res.Signals)))
	b.WriteString(fmt.Sprintf("Took: %s\n", st.Duration.Round(time.Millisecond)))

	if len(st.Selection.Rejections) > 0 {
		b.WriteString("\n<b>Rejections:</b> ")
		b.WriteString(formatCounts(st.Selection.Rejections))
		b.WriteString("\n")
	}
	if len(res.Signals) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatSignals(res.Signals))
	}
	return b.String()
}

// FormatSignals lists signals in rank order.
func FormatSignals(signals []model.Signal) string {
	if len(signals) == 0 {
		return "No signals in the last cycle."
	}
	var b strings.Builder
	b.WriteString("🎯 <b>Signals</b>\n")
	for i, s := range signals {
		icon := "🟢"
		if s.Direction == model.DirectionShort {
			icon = "🔴"
		}
		b.WriteString(fmt.Sprintf("%d. %s <b>%s</b> %s @ %.2f | z %+.2f | conf %.0f%%",
			i+1, icon, html.EscapeString(s.Pair), s.Direction, s.EntryPrice, s.ZScore, s.Confidence))
		if s.Segment != "" {
			b.WriteString(fmt.Sprintf(" | %s", html.EscapeString(s.Segment)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatPairs lists up to limit first-stage candidates, strongest |z| first.
func FormatPairs(candidates []model.CandidateRow, limit int) string {
	if len(candidates) == 0 {
		return "No candidate pairs in the last cycle."
	}
	rows := make([]model.CandidateRow, len(candidates))
	copy(rows, candidates)
	sort.SliceStable(rows, func(i, j int) bool { return math.Abs(rows[i].ZScore) > math.Abs(rows[j].ZScore) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔗 <b>Candidate pairs</b> (%d)\n", len(candidates)))
	for _, c := range rows {
		b.WriteString(fmt.Sprintf("#%d <b>%s</b> lb %d | z %+.2f | β %.3f | R² %.2f | coint p %.3f | HL %s\n",
			c.ID, html.EscapeString(c.Pair()), c.Lookback, c.ZScore, c.Beta, c.RSquared,
			c.CointegrationPValue, formatHalfLife(c.HalfLife)))
	}
	return b.String()
}

// FormatStatus reports scheduler state.
func FormatStatus(last *strategy.Result, lastRun time.Time, source string, running bool) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Status</b>\n\n")
	b.WriteString(fmt.Sprintf("Data source: %s\n", html.EscapeString(source)))
	b.WriteString(fmt.Sprintf("Cycle running: %v\n", running))
	if last == nil {
		b.WriteString("Last cycle: never\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Last cycle: %s\n", lastRun.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("Candidates: %d | Refined: %d | Signals: %d\n",
		len(last.Candidates), len(last.Refined), len(last.Signals)))
	return b.String()
}

// FormatError formats a failed cycle.
func FormatError(err error) string {
	return fmt.Sprintf("⚠️ <b>Cycle failed</b>\n%s", html.EscapeString(err.Error()))
}

func formatHalfLife(hl float64) string {
	if math.IsInf(hl, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.1f", hl)
}

func formatCounts(counts map[strategy.Rejection]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[strategy.Rejection(k)]))
	}
	return strings.Join(parts, ", ")
}

// Package metrics exposes per-cycle Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PairSentinel/internal/strategy"
)

// Registry holds the scanner metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	CycleDuration prometheus.Histogram
	CyclesTotal   *prometheus.CounterVec
	CycleFailures prometheus.Counter

	SymbolsUsable prometheus.Gauge
	PairsTested   prometheus.Gauge
	Candidates    prometheus.Gauge
	Refined       prometheus.Gauge
	Signals       prometheus.Gauge

	Rejections  *prometheus.CounterVec
	RefineSkips *prometheus.CounterVec
}

// NewRegistry creates and registers every metric.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pairsentinel_cycle_duration_seconds",
			Help:    "Duration of an analysis cycle in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairsentinel_cycles_total",
			Help: "Total number of analysis cycles by outcome",
		}, []string{"status"}),
		CycleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairsentinel_cycle_failures_total",
			Help: "Total number of cycles that ended with an error",
		}),

		SymbolsUsable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairsentinel_symbols_usable",
			Help: "Symbols with enough history in the last cycle",
		}),
		PairsTested: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairsentinel_pairs_tested",
			Help: "Ordered pairs tested in the last cycle",
		}),
		Candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairsentinel_first_stage_candidates",
			Help: "First-stage candidates in the last cycle",
		}),
		Refined: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairsentinel_second_stage_rows",
			Help: "Refined rows in the last cycle",
		}),
		Signals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pairsentinel_signals",
			Help: "Signals emitted in the last cycle",
		}),

		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairsentinel_fit_rejections_total",
			Help: "Pair fits rejected by reason",
		}, []string{"reason"}),
		RefineSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pairsentinel_refine_skips_total",
			Help: "Candidates dropped by the second stage by reason",
		}, []string{"reason"}),
	}

	r.reg.MustRegister(
		r.CycleDuration,
		r.CyclesTotal,
		r.CycleFailures,
		r.SymbolsUsable,
		r.PairsTested,
		r.Candidates,
		r.Refined,
		r.Signals,
		r.Rejections,
		r.RefineSkips,
	)
	return r
}

// Observe records a successful cycle.
func (r *Registry) Observe(res *strategy.Result, took time.Duration) {
	r.CyclesTotal.WithLabelValues("ok").Inc()
	r.CycleDuration.Observe(took.Seconds())

	st := res.Stats
	r.SymbolsUsable.Set(float64(st.SymbolsUsable))
	r.PairsTested.Set(float64(st.Selection.PairsTested))
	r.Candidates.Set(float64(len(res.Candidates)))
	r.Refined.Set(float64(len(res.Refined)))
	r.Signals.Set(float64(len(res.Signals)))

	for reason, n := range st.Selection.Rejections {
		r.Rejections.WithLabelValues(string(reason)).Add(float64(n))
	}
	for reason, n := range st.Refine.Skips {
		r.RefineSkips.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// ObserveFailure records a cycle that returned an error.
func (r *Registry) ObserveFailure(took time.Duration) {
	r.CyclesTotal.WithLabelValues("failed").Inc()
	r.CycleFailures.Inc()
	r.CycleDuration.Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

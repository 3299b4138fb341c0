package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"PairSentinel/internal/collector"
	"PairSentinel/internal/config"
	"PairSentinel/internal/metrics"
	"PairSentinel/internal/notifier"
	"PairSentinel/internal/recorder"
	"PairSentinel/internal/strategy"
)

// ErrCycleRunning is returned when a cycle is requested while another runs.
var ErrCycleRunning = errors.New("analysis cycle already running")

const pairsListLimit = 15

// Scheduler runs analysis cycles on a cron schedule and on demand.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Metrics   *metrics.Registry
	Ctx       context.Context

	cycleMu sync.Mutex

	mu       sync.RWMutex
	analysis config.Analysis
	last     *strategy.Result
	lastRun  time.Time
}

// NewScheduler creates a new Scheduler. m may be nil.
func NewScheduler(ctx context.Context, col *collector.Collector, n notifier.Notifier, rec recorder.Recorder, m *metrics.Registry, a config.Analysis) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Notifier:  n,
		Recorder:  rec,
		Metrics:   m,
		Ctx:       ctx,
		analysis:  a.Clone(),
	}
}

// Register schedules the analysis cycle.
func (s *Scheduler) Register(cycleCron string) error {
	if _, err := s.Cron.AddFunc(cycleCron, s.cycleTask); err != nil {
		return fmt.Errorf("register cycle task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// SetAnalysis installs a new analysis record. A cycle already running keeps
// the snapshot it started with.
func (s *Scheduler) SetAnalysis(a config.Analysis) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("set analysis: %w", err)
	}
	s.mu.Lock()
	s.analysis = a.Clone()
	s.mu.Unlock()
	log.Info().Int("dependents", len(a.UniverseDependent)).Int("independents", len(a.UniverseIndependent)).
		Msg("analysis config updated")
	return nil
}

// Analysis returns a copy of the current analysis record.
func (s *Scheduler) Analysis() config.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analysis.Clone()
}

// Last returns the most recent successful result and when it finished.
func (s *Scheduler) Last() (*strategy.Result, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.lastRun
}

// RunCycleNow executes one cycle immediately (manual trigger / RUN_ON_START).
// It returns ErrCycleRunning instead of waiting when a cycle is in progress.
func (s *Scheduler) RunCycleNow() (*strategy.Result, error) {
	if !s.cycleMu.TryLock() {
		return nil, ErrCycleRunning
	}
	defer s.cycleMu.Unlock()
	return s.runCycle()
}

func (s *Scheduler) cycleTask() {
	if _, err := s.RunCycleNow(); err != nil {
		if errors.Is(err, ErrCycleRunning) {
			log.Warn().Msg("previous cycle still running, skipping tick")
			return
		}
		log.Error().Err(err).Msg("analysis cycle failed")
	}
}

func (s *Scheduler) runCycle() (*strategy.Result, error) {
	a := s.Analysis()
	snap := &recorder.CycleSnapshot{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Source:    s.Collector.Fetcher.Name(),
		Analysis:  a,
	}
	logger := log.With().Str("cycle", snap.ID.String()).Logger()
	logger.Info().Str("source", snap.Source).Msg("running analysis cycle")

	res, err := s.execute(a)
	snap.FinishedAt = time.Now()
	took := snap.FinishedAt.Sub(snap.StartedAt)
	snap.Result, snap.Err = res, err

	if recErr := s.Recorder.RecordCycle(snap); recErr != nil {
		logger.Error().Err(recErr).Msg("record cycle failed")
	}

	if err != nil {
		if s.Metrics != nil {
			s.Metrics.ObserveFailure(took)
		}
		s.trySend(notifier.FormatError(err))
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.Observe(res, took)
	}
	s.mu.Lock()
	s.last, s.lastRun = res, snap.FinishedAt
	s.mu.Unlock()

	s.trySend(notifier.FormatCycleReport(res, snap.FinishedAt))
	logger.Info().Int("candidates", len(res.Candidates)).Int("signals", len(res.Signals)).
		Dur("took", took).Msg("analysis cycle complete")
	return res, nil
}

func (s *Scheduler) execute(a config.Analysis) (*strategy.Result, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	bars, err := s.Collector.Collect(s.Ctx, a.Symbols(), a.Timeframe, a.BarCount)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	res, err := strategy.Run(s.Ctx, bars, a)
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}
	return res, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch commandName(command) {
	case "/scan":
		if _, err := s.RunCycleNow(); errors.Is(err, ErrCycleRunning) {
			return "A cycle is already running."
		}
		// The cycle report or failure has already been sent.
		return ""
	case "/pairs":
		last, _ := s.Last()
		if last == nil {
			return "No cycle has completed yet."
		}
		return notifier.FormatPairs(last.Candidates, pairsListLimit)
	case "/signals":
		last, _ := s.Last()
		if last == nil {
			return "No cycle has completed yet."
		}
		return notifier.FormatSignals(last.Signals)
	case "/status":
		last, at := s.Last()
		running := !s.cycleMu.TryLock()
		if !running {
			s.cycleMu.Unlock()
		}
		return notifier.FormatStatus(last, at, s.Collector.Fetcher.Name(), running)
	default:
		return "Available commands:\n• /scan run a cycle now\n• /pairs first-stage candidates\n• /signals last signals\n• /status scheduler status"
	}
}

// commandName strips arguments and a trailing @botname.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name)
}

func (s *Scheduler) trySend(text string) {
	if err := notifier.SendWithRetry(s.Ctx, s.Notifier, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification failed")
	}
}

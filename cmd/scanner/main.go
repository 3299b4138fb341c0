package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"PairSentinel/internal/collector"
	"PairSentinel/internal/config"
	"PairSentinel/internal/metrics"
	"PairSentinel/internal/notifier"
	"PairSentinel/internal/recorder"
	"PairSentinel/internal/scheduler"
	"PairSentinel/internal/strategy"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("config", cfgPath).Msg("PairSentinel starting")

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "bridge":
		fetcher = collector.NewBridgeFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")
	col := collector.NewCollector(fetcher, cfg.Analysis.MinBars)

	// Init notifier
	var (
		n  notifier.Notifier = notifier.NoopNotifier{}
		tn *notifier.TelegramNotifier
	)
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			log.Warn().Err(err).Msg("init telegram notifier failed, notifications disabled")
		} else {
			n = tn
		}
	} else {
		log.Warn().Msg("telegram not configured, notifications disabled")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	reg := metrics.NewRegistry()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, col, n, rec, reg, cfg.Analysis)

	if os.Getenv("RUN_ONCE") == "true" {
		res, err := sched.RunCycleNow()
		if err != nil {
			log.Fatal().Err(err).Msg("cycle failed")
		}
		logTables(res)
		return
	}

	if err := sched.Register(cfg.Schedule.CycleCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", reg.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
	}

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing cycle now")
		go sched.RunCycleNow()
	}

	log.Info().Str("cron", cfg.Schedule.CycleCron).Msg("PairSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}
	log.Info().Msg("PairSentinel stopped")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func logTables(res *strategy.Result) {
	for _, c := range res.Candidates {
		log.Info().Int("id", c.ID).Str("pair", c.Pair()).Int("lookback", c.Lookback).
			Float64("zscore", c.ZScore).Float64("beta", c.Beta).Float64("r_squared", c.RSquared).
			Float64("coint_p", c.CointegrationPValue).Float64("half_life", c.HalfLife).
			Msg("first stage")
	}
	for i, r := range res.Refined {
		log.Info().Int("rank", i+1).Str("pair", r.Pair()).Str("direction", string(r.Direction)).
			Float64("entry", r.EntryPrice).Float64("current", r.CurrentPrice).Float64("perc_diff", r.PercDiff).
			Float64("beta_rotation", r.BetaRotation).Float64("correlacao", r.Correlation).
			Msg("second stage")
	}
	for _, s := range res.Signals {
		log.Info().Str("pair", s.Pair).Str("direction", string(s.Direction)).Float64("zscore", s.ZScore).
			Float64("confidence", s.Confidence).Float64("entry", s.EntryPrice).Str("segment", s.Segment).
			Time("as_of", s.Timestamp).Msg("signal")
	}
}

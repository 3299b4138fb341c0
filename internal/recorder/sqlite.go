package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"PairSentinel/internal/model"
	"PairSentinel/internal/strategy"
)

// SQLiteRecorder persists cycle tables to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id                TEXT PRIMARY KEY,
			started_at        INTEGER NOT NULL,
			finished_at       INTEGER,
			source            TEXT,
			status            TEXT NOT NULL,
			error             TEXT,
			symbols_requested INTEGER,
			symbols_usable    INTEGER,
			pairs_tested      INTEGER,
			fits_attempted    INTEGER,
			candidates        INTEGER,
			refined           INTEGER,
			signals           INTEGER,
			duration_ms       INTEGER,
			analysis          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_at)`,

		`CREATE TABLE IF NOT EXISTS first_stage (
			cycle_id              TEXT NOT NULL,
			row_id                INTEGER NOT NULL,
			dependent             TEXT NOT NULL,
			independent           TEXT NOT NULL,
			lookback              INTEGER,
			as_of                 INTEGER,
			alpha                 REAL,
			beta                  REAL,
			zscore                REAL,
			r_squared             REAL,
			adf_p_value           REAL,
			cointegration_p_value REAL,
			half_life             REAL,
			payload               TEXT,
			PRIMARY KEY (cycle_id, row_id)
		)`,

		`CREATE TABLE IF NOT EXISTS second_stage (
			cycle_id       TEXT NOT NULL,
			rank           INTEGER NOT NULL,
			row_id         INTEGER NOT NULL,
			dependent      TEXT NOT NULL,
			independent    TEXT NOT NULL,
			direction      TEXT NOT NULL,
			zscore         REAL,
			entry_price    REAL,
			current_price  REAL,
			perc_diff      REAL,
			beta_rotation  REAL,
			correlation    REAL,
			payload        TEXT,
			PRIMARY KEY (cycle_id, rank)
		)`,

		`CREATE TABLE IF NOT EXISTS signals (
			cycle_id    TEXT NOT NULL,
			pair        TEXT NOT NULL,
			direction   TEXT NOT NULL,
			zscore      REAL,
			confidence  REAL,
			entry_price REAL,
			segment     TEXT,
			timestamp   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_cycle ON signals(cycle_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordCycle writes the cycle header and its three tables in one transaction.
func (r *SQLiteRecorder) RecordCycle(snap *CycleSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	analysis, err := json.Marshal(snap.Analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	status, errText := "ok", ""
	if snap.Err != nil {
		status, errText = "failed", snap.Err.Error()
	}
	res := snap.Result
	var (
		requested, usable, pairs, fits, nCand, nRef, nSig int
		durationMs                                        int64
	)
	if res != nil {
		st := res.Stats
		requested, usable = st.SymbolsRequested, st.SymbolsUsable
		pairs, fits = st.Selection.PairsTested, st.Selection.FitsAttempted
		nCand, nRef, nSig = len(res.Candidates), len(res.Refined), len(res.Signals)
		durationMs = st.Duration.Milliseconds()
	}

	if _, err := tx.Exec(`INSERT INTO cycles
		(id, started_at, finished_at, source, status, error,
		 symbols_requested, symbols_usable, pairs_tested, fits_attempted,
		 candidates, refined, signals, duration_ms, analysis)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		snap.ID.String(), snap.StartedAt.Unix(), snap.FinishedAt.Unix(), snap.Source, status, errText,
		requested, usable, pairs, fits, nCand, nRef, nSig, durationMs, string(analysis),
	); err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}

	if res != nil {
		if err := insertResult(tx, snap.ID.String(), res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertResult(tx *sql.Tx, cycleID string, res *strategy.Result) error {
	for _, c := range res.Candidates {
		payload, err := json.Marshal(payloadCandidate(c))
		if err != nil {
			return fmt.Errorf("encode candidate %d: %w", c.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO first_stage
			(cycle_id, row_id, dependent, independent, lookback, as_of,
			 alpha, beta, zscore, r_squared, adf_p_value, cointegration_p_value, half_life, payload)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			cycleID, c.ID, c.Dependent, c.Independent, c.Lookback, c.AsOf.Unix(),
			c.Alpha, c.Beta, c.ZScore, c.RSquared, c.ADFPValue, c.CointegrationPValue,
			finite(c.HalfLife), string(payload),
		); err != nil {
			return fmt.Errorf("insert first stage: %w", err)
		}
	}
	for i, row := range res.Refined {
		payload, err := json.Marshal(payloadRefined(row))
		if err != nil {
			return fmt.Errorf("encode refined %d: %w", row.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO second_stage
			(cycle_id, rank, row_id, dependent, independent, direction, zscore,
			 entry_price, current_price, perc_diff, beta_rotation, correlation, payload)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			cycleID, i+1, row.ID, row.Dependent, row.Independent, string(row.Direction), row.ZScore,
			row.EntryPrice, row.CurrentPrice, row.PercDiff, row.BetaRotation, row.Correlation, string(payload),
		); err != nil {
			return fmt.Errorf("insert second stage: %w", err)
		}
	}
	for _, s := range res.Signals {
		if _, err := tx.Exec(`INSERT INTO signals
			(cycle_id, pair, direction, zscore, confidence, entry_price, segment, timestamp)
			VALUES (?,?,?,?,?,?,?,?)`,
			cycleID, s.Pair, string(s.Direction), s.ZScore, s.Confidence, s.EntryPrice, s.Segment, s.Timestamp.Unix(),
		); err != nil {
			return fmt.Errorf("insert signal: %w", err)
		}
	}
	return nil
}

// undefinedHalfLife marks a spread without mean reversion in JSON payloads,
// which cannot carry +Inf.
const undefinedHalfLife = -1

// payloadCandidate drops the residual series and makes the row JSON-safe.
func payloadCandidate(c model.CandidateRow) model.CandidateRow {
	c.ResidualSeries = nil
	if math.IsInf(c.HalfLife, 0) || math.IsNaN(c.HalfLife) {
		c.HalfLife = undefinedHalfLife
	}
	return c
}

func payloadRefined(r model.RefinedRow) model.RefinedRow {
	r.CandidateRow = payloadCandidate(r.CandidateRow)
	return r
}

// finite maps the +Inf half-life sentinel to NULL.
func finite(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

package recorder

import (
	"time"

	"github.com/google/uuid"

	"PairSentinel/internal/config"
	"PairSentinel/internal/strategy"
)

// CycleSnapshot holds everything produced by one analysis cycle.
type CycleSnapshot struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Source     string
	Analysis   config.Analysis
	Result     *strategy.Result
	// Err is set when the cycle failed before producing a result.
	Err error
}

// Recorder persists cycle results for later analysis.
type Recorder interface {
	RecordCycle(snap *CycleSnapshot) error
	Close() error
}

package core

import (
	"log/slog"
	"time"
)

// Tracker accumulates per-operation statistics for a single worker
// loop. It is not synchronized: the loop runs on one goroutine and is
// the only writer.
type Tracker struct {
	operations map[string]*OperationStats
	logger     *slog.Logger
	onReport   func()
}

// NewTracker creates a tracker. onReport is invoked after every
// successful operation so the owner can publish a fresh snapshot; it
// may be nil.
func NewTracker(logger *slog.Logger, onReport func()) *Tracker {
	return &Tracker{
		operations: make(map[string]*OperationStats),
		logger:     logger,
		onReport:   onReport,
	}
}

// Track runs fn as one invocation of the named operation.
//
// On success the operation's count and cumulative duration are
// updated and its rate per hour is recomputed from the time since the
// operation's first invocation. On failure nothing is counted; the
// error is logged and returned to the caller unchanged.
func (t *Tracker) Track(name string, fn func() error) error {
	op, ok := t.operations[name]
	if !ok {
		op = &OperationStats{StartTime: timeToUnix(time.Now())}
		t.operations[name] = op
	}

	start := time.Now()
	if err := fn(); err != nil {
		t.logger.Error("Operation failed", "operation", name, "error", err)
		return err
	}
	end := time.Now()

	op.Count++
	op.TotalDuration += end.Sub(start).Seconds()

	// Cumulative average since the first invocation, not a sliding
	// window. The rate keeps its previous value when no time has
	// elapsed yet.
	elapsed := timeToUnix(end) - op.StartTime
	if elapsed > 0 {
		op.RatePerHour = float64(op.Count) / (elapsed / 3600)
	}

	if t.onReport != nil {
		t.onReport()
	}

	return nil
}

// Operations returns a copy of the per-operation statistics.
func (t *Tracker) Operations() map[string]OperationStats {
	out := make(map[string]OperationStats, len(t.operations))
	for name, op := range t.operations {
		out[name] = *op
	}
	return out
}

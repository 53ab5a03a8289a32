package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Worker is the capability set every concrete worker implements.
type Worker interface {
	// WorkerID returns the default identifier for this worker type.
	// It must be pure: no side effects, callable before the loop starts.
	WorkerID() string

	// DoWork performs one unit of work. Errors are logged by the loop
	// and never abort it; the cycle still counts as completed.
	DoWork(ctx context.Context, rt *Runtime) error
}

// SetupHook is an optional extension point invoked once before the
// first cycle. The loop always performs its base setup step first and
// then calls the hook. A setup error is logged but does not abort the
// loop; cycles proceed regardless.
type SetupHook interface {
	Setup(ctx context.Context, rt *Runtime) error
}

// CleanupHook is an optional extension point invoked exactly once when
// the loop stops, regardless of why it stopped. The loop always
// performs its base cleanup step first and then calls the hook.
type CleanupHook interface {
	Cleanup(ctx context.Context, rt *Runtime) error
}

// WorkerFactory constructs a new worker instance. Factories are
// registered under a type reference and resolved by the runner and the
// manager.
type WorkerFactory func() Worker

// StatusStore persists worker status snapshots and the liveness
// marker. Write failures must be tolerable: the loop logs them and
// keeps running.
type StatusStore interface {
	// Write persists both a structured and a human-readable rendering
	// of the snapshot.
	Write(ctx context.Context, workerID string, snap *Snapshot) error

	// Read returns the last successfully written snapshot, or
	// (nil, nil) if none exists or the stored data is unreadable.
	Read(ctx context.Context, workerID string) (*Snapshot, error)

	// WritePID records the liveness marker for a worker.
	WritePID(ctx context.Context, workerID string, pid int) error

	// ReadPID returns the recorded pid, or (0, nil) if no marker
	// exists or it cannot be parsed.
	ReadPID(ctx context.Context, workerID string) (int, error)

	// RemovePID deletes the liveness marker. Removing a missing
	// marker is not an error.
	RemovePID(ctx context.Context, workerID string) error
}

// Phase is the lifecycle phase of a worker loop.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseRunning      Phase = "running"
	PhaseWaiting      Phase = "waiting"
	PhaseStopped      Phase = "stopped"
)

// CycleStats accumulates per-cycle counters. Owned exclusively by the
// worker loop; durations are seconds, timestamps are Unix seconds.
type CycleStats struct {
	TotalWorkCycles     int64   `json:"total_work_cycles"`
	TotalProcessingTime float64 `json:"total_processing_time"`
	LastWorkCycleTime   float64 `json:"last_work_cycle_time"`
	LastWorkCycleStart  float64 `json:"last_work_cycle_start"`
	LastWorkCycleEnd    float64 `json:"last_work_cycle_end"`
	StartTime           float64 `json:"start_time"`
}

// OperationStats accumulates counters for one named operation.
type OperationStats struct {
	Count         int64   `json:"count"`
	TotalDuration float64 `json:"total_duration"`
	StartTime     float64 `json:"start_time"`
	RatePerHour   float64 `json:"rate_per_hour"`
}

// Snapshot is the complete, point-in-time serialization of a worker's
// accumulated statistics. Snapshots are produced fresh on demand and
// never cached.
type Snapshot struct {
	WorkerID string `json:"worker_id"`
	Status   Phase  `json:"status"`
	CycleStats
	Operations map[string]OperationStats `json:"operations"`
	Timestamp  float64                   `json:"timestamp"`
}

// HumanString renders the snapshot as labelled lines, one per field,
// plus one line per operation.
func (s *Snapshot) HumanString() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Worker ID: %s\n", s.WorkerID)
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	fmt.Fprintf(&b, "Total Cycles: %d\n", s.TotalWorkCycles)

	if s.LastWorkCycleTime > 0 {
		fmt.Fprintf(&b, "Last Cycle Duration: %.2fs\n", s.LastWorkCycleTime)
	}
	if s.TotalProcessingTime > 0 {
		cycles := s.TotalWorkCycles
		if cycles < 1 {
			cycles = 1
		}
		fmt.Fprintf(&b, "Average Cycle Time: %.2fs\n", s.TotalProcessingTime/float64(cycles))
	}

	if len(s.Operations) > 0 {
		b.WriteString("\nOperations:\n")
		names := make([]string, 0, len(s.Operations))
		for name := range s.Operations {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			op := s.Operations[name]
			fmt.Fprintf(&b, "  %s: %.1f/hour (%d total)\n", name, op.RatePerHour, op.Count)
		}
	}

	if s.Timestamp > 0 {
		fmt.Fprintf(&b, "\nLast Updated: %s\n", unixToTime(s.Timestamp).Format("2006-01-02 15:04:05"))
	}

	return b.String()
}

// timeToUnix converts a time to fractional Unix seconds.
func timeToUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// unixToTime converts fractional Unix seconds back to a time.
func unixToTime(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}

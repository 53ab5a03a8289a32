package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Loop drives a single worker instance through its lifecycle:
// initializing -> running <-> waiting -> stopped. Stopped is terminal.
//
// The loop owns its CycleStats and operation tracker exclusively and
// runs on a single goroutine. Cancellation is cooperative: the context
// is checked at every cycle boundary and during the inter-cycle wait;
// in-flight work is never interrupted.
type Loop struct {
	worker Worker
	store  StatusStore
	config *Config

	id      string
	logger  *slog.Logger
	tracker *Tracker
	rt      *Runtime

	stats CycleStats
	phase Phase

	ctx context.Context
}

// NewLoop creates a loop for one worker instance.
func NewLoop(worker Worker, store StatusStore, options ...Option) *Loop {
	config := defaultConfig()
	for _, opt := range options {
		opt(config)
	}

	id := config.WorkerID
	if id == "" {
		id = worker.WorkerID()
	}

	l := &Loop{
		worker: worker,
		store:  store,
		config: config,
		id:     id,
		logger: config.Logger.With("worker_id", id),
		phase:  PhaseInitializing,
		ctx:    context.Background(),
	}

	l.tracker = NewTracker(l.logger, func() { l.publish(l.ctx) })
	l.rt = &Runtime{
		logger:  l.logger,
		params:  config.Params,
		tracker: l.tracker,
	}

	return l
}

// ID returns the worker identity used for all status and liveness
// lookups.
func (l *Loop) ID() string {
	return l.id
}

// Snapshot produces a fresh status snapshot of the current statistics.
func (l *Loop) Snapshot() *Snapshot {
	return &Snapshot{
		WorkerID:   l.id,
		Status:     l.phase,
		CycleStats: l.stats,
		Operations: l.tracker.Operations(),
		Timestamp:  timeToUnix(time.Now()),
	}
}

// Run executes the worker lifecycle until the context is cancelled,
// the configured cycle bound is reached, or an unrecoverable error
// occurs outside DoWork. Teardown (cleanup hook, final snapshot,
// liveness-marker removal) runs unconditionally.
func (l *Loop) Run(ctx context.Context) error {
	l.ctx = ctx

	if err := l.store.WritePID(ctx, l.id, os.Getpid()); err != nil {
		l.logger.Error("Failed to write pid file", "error", err)
	}

	maxCycles := "unlimited"
	if l.config.MaxCycles > 0 {
		maxCycles = fmt.Sprint(l.config.MaxCycles)
	}
	l.logger.Info("Worker starting",
		"wait_interval", l.config.WaitInterval,
		"max_cycles", maxCycles)

	defer l.teardown(ctx)

	l.phase = PhaseRunning
	l.runSetup(ctx)

	for {
		if ctx.Err() != nil {
			l.logger.Info("Shutdown requested")
			return nil
		}
		if l.config.MaxCycles > 0 && l.stats.TotalWorkCycles >= int64(l.config.MaxCycles) {
			l.logger.Info("Reached max cycles limit", "max_cycles", l.config.MaxCycles)
			return nil
		}

		l.phase = PhaseRunning
		start := time.Now()

		l.logger.Info("Starting work cycle", "cycle", l.stats.TotalWorkCycles+1)
		if err := l.invokeWork(ctx); err != nil {
			// Cycle errors are contained: log and keep looping.
			l.logger.Error("Error in work cycle", "error", err)
		} else {
			l.logger.Info("Work cycle completed successfully")
		}
		end := time.Now()

		l.updateCycleStats(start, end)
		l.phase = PhaseWaiting
		l.publish(ctx)

		l.wait(ctx, end.Sub(start))
	}
}

// invokeWork calls DoWork with panic recovery so a panicking worker
// cannot take the loop down.
func (l *Loop) invokeWork(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in work cycle: %v", r)
		}
	}()

	return l.worker.DoWork(ctx, l.rt)
}

// runSetup performs the base setup step and then the worker's hook, if
// any. A setup failure is logged but does not abort the loop.
func (l *Loop) runSetup(ctx context.Context) {
	l.logger.Info("Worker setup completed")

	hook, ok := l.worker.(SetupHook)
	if !ok {
		return
	}
	if err := hook.Setup(ctx, l.rt); err != nil {
		l.logger.Error("Worker setup failed, cycles proceed anyway", "error", err)
	}
}

// teardown publishes the final snapshot, runs cleanup exactly once,
// and removes the liveness marker.
func (l *Loop) teardown(ctx context.Context) {
	l.phase = PhaseStopped
	l.publish(ctx)

	l.logger.Info("Worker cleanup completed")
	if hook, ok := l.worker.(CleanupHook); ok {
		if err := hook.Cleanup(ctx, l.rt); err != nil {
			l.logger.Error("Worker cleanup failed", "error", err)
		}
	}

	if err := l.store.RemovePID(ctx, l.id); err != nil {
		l.logger.Error("Failed to remove pid file", "error", err)
	}

	l.logger.Info("Worker stopped")
}

// updateCycleStats records a completed cycle. The overall start time
// is set once, on the first cycle.
func (l *Loop) updateCycleStats(start, end time.Time) {
	processing := end.Sub(start).Seconds()
	l.stats.TotalWorkCycles++
	l.stats.TotalProcessingTime += processing
	l.stats.LastWorkCycleTime = processing
	l.stats.LastWorkCycleStart = timeToUnix(start)
	l.stats.LastWorkCycleEnd = timeToUnix(end)
	if l.stats.StartTime == 0 {
		l.stats.StartTime = timeToUnix(start)
	}
}

// wait sleeps for the configured interval minus the time already spent
// in the cycle. Cancellation cuts the wait short immediately.
func (l *Loop) wait(ctx context.Context, elapsed time.Duration) {
	if ctx.Err() != nil || l.config.WaitInterval <= 0 {
		return
	}

	remaining := l.config.WaitInterval - elapsed
	if remaining <= 0 {
		return
	}

	l.logger.Info("Waiting before next cycle", "wait", remaining.Round(time.Millisecond))

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// publish writes a fresh snapshot. Persistence failures never
// propagate; a monitoring failure must not crash the worker.
func (l *Loop) publish(ctx context.Context) {
	if err := l.store.Write(ctx, l.id, l.Snapshot()); err != nil {
		l.logger.Error("Failed to write status", "error", err)
	}
}

package miniworker

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/BranchIntl/miniworker/core"
	"github.com/BranchIntl/miniworker/logging"
	"github.com/BranchIntl/miniworker/registry"
	filestore "github.com/BranchIntl/miniworker/statusstore/file"
)

var globalRegistry = registry.NewRegistry()

// Register adds a worker factory to the global registry under a type
// reference. Binaries embedding the runner register their worker types
// here so the run command and the manager can resolve them.
func Register(typeRef string, factory core.WorkerFactory) error {
	return globalRegistry.Register(typeRef, factory)
}

// Registry returns the global worker registry.
func Registry() *registry.Registry {
	return globalRegistry
}

// RunOptions configures a worker run in this process.
type RunOptions struct {
	// WorkerID overrides the worker-type default identifier
	WorkerID string

	// LogDir is the directory for log files (default: current directory)
	LogDir string

	// StatsDir is the directory for status files (default: LogDir)
	StatsDir string

	// WaitInterval is the wait between work cycles; zero runs cycles
	// back to back
	WaitInterval time.Duration

	// MaxCycles bounds the number of cycles (0: unlimited)
	MaxCycles int

	// Params is the worker-specific parameter map
	Params map[string]any

	// RunToken is the opaque launch tag the manager embeds in the
	// command line; logged for correlation
	RunToken string

	// Verbose enables debug-level logging
	Verbose bool

	// Store overrides the default file-based status store
	Store core.StatusStore
}

// Run executes a worker's lifecycle in the current process: it sets up
// the per-worker rotating log, the status store, and signal handling,
// then blocks until the loop stops.
func Run(worker core.Worker, o RunOptions) error {
	if o.LogDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		o.LogDir = wd
	}
	if o.StatsDir == "" {
		o.StatsDir = o.LogDir
	}

	id := o.WorkerID
	if id == "" {
		id = worker.WorkerID()
	}

	logOptions := logging.DefaultOptions()
	if o.Verbose {
		logOptions.Level = slog.LevelDebug
	}
	logger, closer, err := logging.NewWorkerLogger(id, o.LogDir, logOptions)
	if err != nil {
		return err
	}
	defer closer.Close()

	store := o.Store
	if store == nil {
		store, err = filestore.NewStore(o.StatsDir)
		if err != nil {
			return err
		}
	}

	if o.RunToken != "" {
		logger.Info("Launched under manager", "worker_id", id, "run_token", o.RunToken)
	}

	loop := core.NewLoop(worker, store,
		core.WithWorkerID(id),
		core.WithWaitInterval(o.WaitInterval),
		core.WithMaxCycles(o.MaxCycles),
		core.WithParams(o.Params),
		core.WithLogger(logger),
	)

	// Handle signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := signals()
	go func() {
		<-quit
		cancel()
	}()

	return loop.Run(ctx)
}

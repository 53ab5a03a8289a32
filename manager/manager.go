// Package manager supervises worker processes: registering worker
// types, launching them as detached subprocesses, checking liveness
// against the pid marker and the OS process table, and stopping them
// gracefully with a forced-kill escalation.
//
// The manager never calls into a running worker's memory. It observes
// workers only through the status store and the process table.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/BranchIntl/miniworker/core"
	"github.com/BranchIntl/miniworker/errors"
	filestore "github.com/BranchIntl/miniworker/statusstore/file"
	"github.com/google/uuid"
)

// MarkerToken must appear in a worker's command line for the manager
// to treat the process as one of ours. The manager embeds it in the
// run token it passes at spawn time.
const MarkerToken = "miniworker"

// Resolver is what the manager needs from a worker registry.
type Resolver interface {
	Get(typeRef string) (core.WorkerFactory, bool)
}

// WorkerStatus combines liveness, process metadata, and the best
// available status snapshot for one registered worker.
type WorkerStatus struct {
	Name         string         `json:"name"`
	Running      bool           `json:"running"`
	PID          int            `json:"pid,omitempty"`
	ProcessStart time.Time      `json:"process_start,omitempty"`
	Stats        *core.Snapshot `json:"stats,omitempty"`
}

// Config holds manager configuration
type Config struct {
	LogDir      string
	StatsDir    string
	Binary      string
	GracePeriod time.Duration
	Store       core.StatusStore
	Prober      Prober
	Spawn       SpawnFunc
	Logger      *slog.Logger
}

// Option is a function that modifies manager configuration
type Option func(*Config)

// WithLogDir sets the directory for worker log files
func WithLogDir(dir string) Option {
	return func(c *Config) { c.LogDir = dir }
}

// WithStatsDir sets the directory for worker status files
func WithStatsDir(dir string) Option {
	return func(c *Config) { c.StatsDir = dir }
}

// WithBinary sets the worker-runner executable (default: the current
// executable)
func WithBinary(path string) Option {
	return func(c *Config) { c.Binary = path }
}

// WithGracePeriod sets how long Stop waits for a graceful exit before
// force-killing
func WithGracePeriod(d time.Duration) Option {
	return func(c *Config) { c.GracePeriod = d }
}

// WithStore overrides the status store used for snapshot and pid reads
func WithStore(store core.StatusStore) Option {
	return func(c *Config) { c.Store = store }
}

// WithProber overrides the process-table prober
func WithProber(p Prober) Option {
	return func(c *Config) { c.Prober = p }
}

// WithSpawn overrides the process spawner
func WithSpawn(spawn SpawnFunc) Option {
	return func(c *Config) { c.Spawn = spawn }
}

// WithLogger sets the manager's logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// Manager controls workers as separate OS processes.
type Manager struct {
	registry Resolver
	store    core.StatusStore
	prober   Prober
	spawn    SpawnFunc
	logger   *slog.Logger

	logDir      string
	statsDir    string
	binary      string
	gracePeriod time.Duration

	mu      sync.RWMutex
	workers map[string]string // logical name -> worker type reference
}

// NewManager creates a manager that validates type references against
// the given registry.
func NewManager(registry Resolver, options ...Option) (*Manager, error) {
	config := &Config{
		LogDir:      "logs",
		GracePeriod: 5 * time.Second,
		Prober:      gopsutilProber{},
		Spawn:       spawnDetached,
		Logger:      slog.Default(),
	}
	for _, opt := range options {
		opt(config)
	}
	if config.StatsDir == "" {
		config.StatsDir = config.LogDir
	}

	if config.Binary == "" {
		bin, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve worker-runner binary: %w", err)
		}
		config.Binary = bin
	}

	store := config.Store
	if store == nil {
		var err error
		store, err = filestore.NewStore(config.StatsDir)
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(config.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", config.LogDir, err)
	}

	return &Manager{
		registry:    registry,
		store:       store,
		prober:      config.Prober,
		spawn:       config.Spawn,
		logger:      config.Logger,
		logDir:      config.LogDir,
		statsDir:    config.StatsDir,
		binary:      config.Binary,
		gracePeriod: config.GracePeriod,
		workers:     make(map[string]string),
	}, nil
}

// Register maps a logical worker name to a worker type reference. The
// reference must resolve to a registered factory.
func (m *Manager) Register(name, typeRef string) error {
	if name == "" {
		return errors.NewRegistrationError(typeRef, errors.ErrEmptyWorkerName)
	}
	if _, ok := m.registry.Get(typeRef); !ok {
		return errors.NewRegistrationError(typeRef, errors.ErrWorkerTypeNotFound)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers[name] = typeRef
	return nil
}

// UniqueID derives the worker identity the manager assigns, giving a
// 1:1 mapping from logical name to liveness-marker key.
func (m *Manager) UniqueID(name string) string {
	return "worker_manager_" + name
}

// AvailableWorkers returns the registered logical names.
func (m *Manager) AvailableWorkers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.workers))
	for name := range m.workers {
		names = append(names, name)
	}
	return names
}

// Start launches a registered worker without parameters.
func (m *Manager) Start(ctx context.Context, name string) error {
	return m.StartWithParams(ctx, name, nil)
}

// StartWithParams launches a registered worker as a detached
// subprocess, passing the serialized parameter map on its command
// line.
func (m *Manager) StartWithParams(ctx context.Context, name string, params map[string]any) error {
	m.mu.RLock()
	typeRef, ok := m.workers[name]
	m.mu.RUnlock()
	if !ok {
		return errors.NewUnknownWorkerError(name)
	}

	running, err := m.IsRunning(ctx, name)
	if err != nil {
		return err
	}
	if running {
		return errors.NewAlreadyRunningError(name)
	}

	uid := m.UniqueID(name)
	// The run token tags the command line with the framework marker
	// and a per-launch id, which is what liveness scans match on.
	token := MarkerToken + "-" + uuid.NewString()

	args := []string{
		"run",
		"-worker", typeRef,
		"-worker-id", uid,
		"-log-dir", m.logDir,
		"-stats-dir", m.statsDir,
		"-run-token", token,
	}
	if len(params) > 0 {
		encoded, err := json.Marshal(params)
		if err != nil {
			return errors.NewStartError(name, fmt.Errorf("failed to encode parameters: %w", err))
		}
		args = append(args, "-worker-params", string(encoded))
	}

	pid, err := m.spawn(m.binary, args)
	if err != nil {
		return errors.NewStartError(name, err)
	}

	m.logger.Info("Worker started",
		"name", name,
		"worker_id", uid,
		"pid", pid,
		"run_token", token)
	return nil
}

// Stop terminates a running worker gracefully, escalating to a forced
// kill when the grace period elapses.
func (m *Manager) Stop(ctx context.Context, name string) error {
	running, err := m.IsRunning(ctx, name)
	if err != nil {
		return err
	}
	if !running {
		return errors.NewNotRunningError(name)
	}

	uid := m.UniqueID(name)
	proc, err := m.prober.FindProcess(ctx, uid, MarkerToken)
	if err != nil {
		return fmt.Errorf("failed to scan process table: %w", err)
	}
	if proc == nil {
		// The marker said alive but the table disagrees: report the
		// race instead of silently ignoring it.
		return errors.NewProcessNotFoundError(name, uid)
	}

	if err := proc.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate worker %s: %w", name, err)
	}

	if m.awaitExit(ctx, proc) {
		m.logger.Info("Worker stopped gracefully", "name", name, "pid", proc.Pid())
		return nil
	}

	m.logger.Warn("Grace period elapsed, force-killing worker",
		"name", name,
		"pid", proc.Pid(),
		"grace_period", m.gracePeriod)
	if err := proc.Kill(ctx); err != nil {
		return fmt.Errorf("failed to kill worker %s: %w", name, err)
	}

	return nil
}

// awaitExit polls for process exit until the grace period elapses.
func (m *Manager) awaitExit(ctx context.Context, proc Process) bool {
	deadline := time.Now().Add(m.gracePeriod)
	for time.Now().Before(deadline) {
		running, err := proc.IsRunning(ctx)
		if err != nil || !running {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
	return false
}

// IsRunning reports whether the worker's liveness marker exists AND
// the recorded pid is present in the process table. A marker without a
// live process is treated as not running; the stale marker is left for
// the next start or status report to correct.
func (m *Manager) IsRunning(ctx context.Context, name string) (bool, error) {
	pid, err := m.store.ReadPID(ctx, m.UniqueID(name))
	if err != nil {
		return false, err
	}
	if pid == 0 {
		return false, nil
	}

	return m.prober.PidExists(ctx, pid)
}

// Status combines liveness, the best available snapshot, and, when
// running, process metadata read from the process table rather than
// the snapshot, which may be stale.
func (m *Manager) Status(ctx context.Context, name string) (WorkerStatus, error) {
	m.mu.RLock()
	_, ok := m.workers[name]
	m.mu.RUnlock()
	if !ok {
		return WorkerStatus{}, errors.NewUnknownWorkerError(name)
	}

	uid := m.UniqueID(name)
	status := WorkerStatus{Name: name}

	snap, err := m.store.Read(ctx, uid)
	if err != nil {
		m.logger.Error("Failed to read status snapshot", "name", name, "error", err)
	}
	status.Stats = snap

	running, err := m.IsRunning(ctx, name)
	if err != nil {
		return status, err
	}
	status.Running = running

	if running {
		proc, err := m.prober.FindProcess(ctx, uid, MarkerToken)
		if err == nil && proc != nil {
			status.PID = proc.Pid()
			if started, err := proc.CreateTime(ctx); err == nil {
				status.ProcessStart = started
			}
		}
	}

	return status, nil
}

// StatusAll returns Status for every registered worker.
func (m *Manager) StatusAll(ctx context.Context) (map[string]WorkerStatus, error) {
	m.mu.RLock()
	names := make([]string, 0, len(m.workers))
	for name := range m.workers {
		names = append(names, name)
	}
	m.mu.RUnlock()

	statuses := make(map[string]WorkerStatus, len(names))
	for _, name := range names {
		status, err := m.Status(ctx, name)
		if err != nil {
			return nil, err
		}
		statuses[name] = status
	}

	return statuses, nil
}

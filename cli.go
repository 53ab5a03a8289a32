package miniworker

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BranchIntl/miniworker/core"
	"github.com/BranchIntl/miniworker/statusstore"
	filestore "github.com/BranchIntl/miniworker/statusstore/file"
	"github.com/sethvargo/go-envconfig"
	"github.com/shirou/gopsutil/v4/process"
)

// envDefaults are environment-supplied defaults for the CLI flags.
type envDefaults struct {
	LogDir    string `env:"MINIWORKER_LOG_DIR"`
	StatsDir  string `env:"MINIWORKER_STATS_DIR"`
	StoreType string `env:"MINIWORKER_STATUS_STORE"`
	StoreURI  string `env:"MINIWORKER_STATUS_URI"`
}

// Execute runs the miniworker command-line surface against the global
// registry and returns a process exit code. Binaries embedding workers
// call this from main after registering their types; the manager
// spawns the same binary with the run subcommand.
func Execute(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "run":
		return runCommand(args[1:])
	case "status":
		return statusCommand(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "miniworker: a parameter-driven background worker runner")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  miniworker run -worker <type> [options]")
	fmt.Fprintln(os.Stderr, "  miniworker status [-worker-id <id>] [options]")
}

func runCommand(args []string) int {
	var env envDefaults
	if err := envconfig.Process(context.Background(), &env); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading environment: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	worker := fs.String("worker", "", "type reference of the worker to run")
	workerID := fs.String("worker-id", "", "override worker ID (default: worker type default)")
	logDir := fs.String("log-dir", env.LogDir, "directory for log files (default: current directory)")
	statsDir := fs.String("stats-dir", env.StatsDir, "directory for stats files (default: same as log-dir)")
	waitSeconds := fs.Float64("wait-seconds", 600, "seconds to wait between work cycles")
	maxCycles := fs.Int("max-cycles", 0, "maximum number of work cycles before stopping (0: unlimited)")
	paramsJSON := fs.String("worker-params", "{}", "JSON object of worker-specific parameters")
	runToken := fs.String("run-token", "", "opaque launch tag set by the manager")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	storeType := fs.String("status-store", env.StoreType, "status store backend: file, redis, or noop (default: file)")
	storeURI := fs.String("status-uri", env.StoreURI, "status store connection URI (redis backend)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *worker == "" {
		fmt.Fprintln(os.Stderr, "Error: -worker is required")
		return 2
	}

	factory, ok := globalRegistry.Get(*worker)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: %q is not a registered worker type\n", *worker)
		fmt.Fprintf(os.Stderr, "Registered types: %v\n", globalRegistry.List())
		return 1
	}

	params, err := parseWorkerParams(*paramsJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Reserved parameters let a manager-supplied parameter map carry
	// loop configuration, the manager command line encodes only the
	// type, id, directories, and params.
	if v, ok := popFloat(params, "wait_seconds"); ok {
		*waitSeconds = v
	}
	if v, ok := popFloat(params, "max_cycles"); ok {
		*maxCycles = int(v)
	}

	// Non-file backends are built here; the file default is resolved
	// inside Run, where the stats directory is known.
	var store core.StatusStore
	if *storeType != "" && *storeType != string(statusstore.File) {
		store, err = statusstore.NewStore(context.Background(), statusstore.Config{
			Type: statusstore.StoreType(*storeType),
			URI:  *storeURI,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if closer, ok := store.(io.Closer); ok {
			defer closer.Close()
		}
	}

	err = Run(factory(), RunOptions{
		WorkerID:     *workerID,
		LogDir:       *logDir,
		StatsDir:     *statsDir,
		WaitInterval: time.Duration(*waitSeconds * float64(time.Second)),
		MaxCycles:    *maxCycles,
		Params:       params,
		RunToken:     *runToken,
		Verbose:      *verbose,
		Store:        store,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func statusCommand(args []string) int {
	var env envDefaults
	if err := envconfig.Process(context.Background(), &env); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading environment: %v\n", err)
		return 2
	}
	if env.StatsDir == "" {
		env.StatsDir = "."
	}

	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	statsDir := fs.String("stats-dir", env.StatsDir, "directory containing stats files")
	workerID := fs.String("worker-id", "", "show status for a specific worker ID")
	format := fs.String("format", "text", "output format: text or json")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(os.Stderr, "Error: invalid format %q\n", *format)
		return 2
	}

	ctx := context.Background()
	store, err := filestore.NewStore(*statsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *workerID != "" {
		return printOneStatus(ctx, store, *workerID, *format)
	}
	return printAllStatuses(ctx, store, *format)
}

// statusReport is the status command's output shape for one worker.
type statusReport struct {
	*core.Snapshot
	IsRunning bool `json:"is_running"`
}

func printOneStatus(ctx context.Context, store *filestore.Store, workerID, format string) int {
	snap, err := store.Read(ctx, workerID)
	if err != nil || snap == nil {
		fmt.Fprintf(os.Stderr, "No status found for worker %q\n", workerID)
		return 1
	}

	running := workerAlive(ctx, store, workerID)

	if format == "json" {
		report := statusReport{Snapshot: snap, IsRunning: running}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	printWorkerStatus(snap, running)
	return 0
}

func printAllStatuses(ctx context.Context, store *filestore.Store, format string) int {
	ids, err := store.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(ids) == 0 {
		fmt.Println("No worker status files found")
		return 0
	}

	if format == "json" {
		reports := make(map[string]statusReport, len(ids))
		for _, id := range ids {
			snap, err := store.Read(ctx, id)
			if err != nil || snap == nil {
				continue
			}
			reports[id] = statusReport{
				Snapshot:  snap,
				IsRunning: workerAlive(ctx, store, id),
			}
		}
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	for _, id := range ids {
		snap, err := store.Read(ctx, id)
		if err != nil || snap == nil {
			continue
		}
		printWorkerStatus(snap, workerAlive(ctx, store, id))
		fmt.Println()
	}
	return 0
}

func printWorkerStatus(snap *core.Snapshot, running bool) {
	fmt.Print(snap.HumanString())
	if running {
		fmt.Println("Process: running")
	} else {
		fmt.Println("Process: not running")
	}
}

// workerAlive corroborates the liveness marker against the process
// table; the marker alone proves nothing.
func workerAlive(ctx context.Context, store *filestore.Store, workerID string) bool {
	pid, err := store.ReadPID(ctx, workerID)
	if err != nil || pid == 0 {
		return false
	}
	alive, err := process.PidExistsWithContext(ctx, int32(pid))
	return err == nil && alive
}

func parseWorkerParams(s string) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}

	params := map[string]any{}
	if err := json.Unmarshal([]byte(s), &params); err != nil {
		return nil, fmt.Errorf("invalid JSON in worker parameters: %w", err)
	}
	return params, nil
}

func popFloat(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	delete(params, key)

	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Package miniworker is a Go framework for periodic background
// workers. A worker implements a single DoWork method; the framework
// runs it in a loop with a configurable wait between cycles, tracks
// per-operation statistics, persists status snapshots to a pluggable
// store, and supervises worker processes across OS process boundaries.
//
// miniworker supports multiple status-store backends:
// - File (JSON snapshot, human-readable stats, pid marker)
// - Redis
// - Bring Your Own
//
// # Example
//
//	package main
//
//	import (
//		"context"
//		"os"
//
//		"github.com/BranchIntl/miniworker"
//		"github.com/BranchIntl/miniworker/core"
//	)
//
//	type Poller struct{}
//
//	func (p *Poller) WorkerID() string { return "poller" }
//
//	func (p *Poller) DoWork(ctx context.Context, rt *core.Runtime) error {
//		return rt.Track("poll_upstream", func() error {
//			// fetch and process
//			return nil
//		})
//	}
//
//	func main() {
//		miniworker.Register("Poller", func() core.Worker { return &Poller{} })
//		os.Exit(miniworker.Execute(os.Args[1:]))
//	}
//
// Registered binaries expose the run and status subcommands, so the
// same executable serves as the worker runner:
//
//	mybinary run -worker Poller -wait-seconds 60
//	mybinary status -stats-dir ./logs
//
// # Supervising Workers
//
// The manager package launches workers as detached subprocesses of the
// same binary and stops them by scanning the process table:
//
//	mgr, err := manager.NewManager(miniworker.Registry(),
//		manager.WithLogDir("/var/log/workers"),
//	)
//	if err != nil {
//		panic(err)
//	}
//	mgr.Register("poller", "Poller")
//	mgr.StartWithParams(ctx, "poller", map[string]any{"wait_seconds": 60})
//
// # Parameters
//
// Workers receive a parameter map decoded from JSON. The Runtime
// offers typed accessors with defaults:
//
//	func (w *Mailer) DoWork(ctx context.Context, rt *core.Runtime) error {
//		batch := rt.IntParam("batch_size", 100)
//		subject := rt.StringParam("subject", "(no subject)")
//		...
//	}
//
// The reserved parameters wait_seconds and max_cycles configure the
// loop itself and are removed from the map before the worker sees it.
//
// # Lifecycle
//
// A worker moves through initializing, running, waiting, and stopped
// phases. Optional Setup and Cleanup hooks run once at the edges;
// setup failures are logged but do not prevent cycles, and cleanup
// runs exactly once no matter how the loop ends. Work errors are
// logged and counted as completed cycles, never fatal.
package miniworker

package manager

import (
	"context"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Prober is the manager's view of the OS process table.
type Prober interface {
	// PidExists reports whether a process with the given pid exists.
	PidExists(ctx context.Context, pid int) (bool, error)

	// FindProcess returns a process whose command line contains every
	// substring, or (nil, nil) when none matches.
	FindProcess(ctx context.Context, substrings ...string) (Process, error)
}

// Process is a live entry in the process table.
type Process interface {
	Pid() int
	CreateTime(ctx context.Context) (time.Time, error)
	Terminate(ctx context.Context) error
	Kill(ctx context.Context) error
	IsRunning(ctx context.Context) (bool, error)
}

// gopsutilProber implements Prober against the real process table.
type gopsutilProber struct{}

func (gopsutilProber) PidExists(ctx context.Context, pid int) (bool, error) {
	return process.PidExistsWithContext(ctx, int32(pid))
}

func (gopsutilProber) FindProcess(ctx context.Context, substrings ...string) (Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range procs {
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || cmdline == "" {
			// Processes we cannot inspect are not ours to manage.
			continue
		}
		if containsAll(cmdline, substrings) {
			return &gopsutilProcess{p: p}, nil
		}
	}

	return nil, nil
}

func containsAll(s string, substrings []string) bool {
	for _, sub := range substrings {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

type gopsutilProcess struct {
	p *process.Process
}

func (g *gopsutilProcess) Pid() int {
	return int(g.p.Pid)
}

func (g *gopsutilProcess) CreateTime(ctx context.Context) (time.Time, error) {
	ms, err := g.p.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func (g *gopsutilProcess) Terminate(ctx context.Context) error {
	return g.p.TerminateWithContext(ctx)
}

func (g *gopsutilProcess) Kill(ctx context.Context) error {
	return g.p.KillWithContext(ctx)
}

func (g *gopsutilProcess) IsRunning(ctx context.Context) (bool, error) {
	return g.p.IsRunningWithContext(ctx)
}

// SpawnFunc launches a detached worker process and returns its pid.
type SpawnFunc func(binary string, args []string) (int, error)

// spawnDetached starts the worker in its own session with output
// discarded; the status files are the only channel back.
func spawnDetached(binary string, args []string) (int, error) {
	cmd := exec.Command(binary, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	// Reap the child when it exits so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()

	return cmd.Process.Pid, nil
}

// Package logging builds per-worker loggers. Each worker instance
// logs to a size-rotated <worker_id>.log in its log directory and,
// optionally, to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options for worker loggers
type Options struct {
	// Level is the minimum level logged
	Level slog.Level

	// Console mirrors log lines to stderr in addition to the file
	Console bool

	// MaxSizeMB is the size at which the log file rotates
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept
	MaxBackups int
}

// DefaultOptions returns default logger options
func DefaultOptions() Options {
	return Options{
		Level:      slog.LevelInfo,
		Console:    true,
		MaxSizeMB:  10,
		MaxBackups: 5,
	}
}

// NewWorkerLogger creates a logger for one worker instance. The
// returned closer flushes and closes the underlying log file.
func NewWorkerLogger(workerID, logDir string, options Options) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, workerID+".log"),
		MaxSize:    options.MaxSizeMB,
		MaxBackups: options.MaxBackups,
	}

	var out io.Writer = rotator
	if options.Console {
		out = io.MultiWriter(rotator, os.Stderr)
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: options.Level})
	return slog.New(handler), rotator, nil
}

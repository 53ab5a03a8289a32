// Package file implements the default file-based status store.
//
// One worker id maps to three files in the stats directory:
// <id>.json (structured snapshot), <id>.stats (human-readable
// rendering), and <id>.pid (liveness marker containing the decimal
// process id). The structured file is replaced atomically so readers
// never observe partial content.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BranchIntl/miniworker/core"
)

// Store persists snapshots and liveness markers as files.
type Store struct {
	dir string
}

// NewStore creates a file store rooted at dir, creating the directory
// if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the stats directory.
func (s *Store) Dir() string {
	return s.dir
}

// Write persists the structured and human-readable renderings of the
// snapshot. The structured file is written to a temp file and renamed
// into place.
func (s *Store) Write(ctx context.Context, workerID string, snap *core.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.replace(s.jsonPath(workerID), data); err != nil {
		return err
	}

	return s.replace(s.statsPath(workerID), []byte(snap.HumanString()))
}

// Read returns the last successfully written snapshot. A missing or
// corrupt file yields (nil, nil): monitoring data is advisory.
func (s *Store) Read(ctx context.Context, workerID string) (*core.Snapshot, error) {
	data, err := os.ReadFile(s.jsonPath(workerID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil
	}

	return &snap, nil
}

// WritePID records the liveness marker.
func (s *Store) WritePID(ctx context.Context, workerID string, pid int) error {
	return os.WriteFile(s.pidPath(workerID), []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// ReadPID returns the recorded pid, or (0, nil) when no marker exists
// or it cannot be parsed.
func (s *Store) ReadPID(ctx context.Context, workerID string) (int, error) {
	data, err := os.ReadFile(s.pidPath(workerID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}

	return pid, nil
}

// RemovePID deletes the liveness marker.
func (s *Store) RemovePID(ctx context.Context, workerID string) error {
	err := os.Remove(s.pidPath(workerID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

// List returns the worker ids that have a structured snapshot on disk.
func (s *Store) List(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	return ids, nil
}

// replace writes data to path through a temp file and an atomic rename.
func (s *Store) replace(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %q: %w", path, err)
	}

	return nil
}

func (s *Store) jsonPath(workerID string) string {
	return filepath.Join(s.dir, workerID+".json")
}

func (s *Store) statsPath(workerID string) string {
	return filepath.Join(s.dir, workerID+".stats")
}

func (s *Store) pidPath(workerID string) string {
	return filepath.Join(s.dir, workerID+".pid")
}

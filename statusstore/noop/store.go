// Package noop implements a status store that discards everything,
// for tests and for workers that opt out of monitoring.
package noop

import (
	"context"

	"github.com/BranchIntl/miniworker/core"
)

// Store implements the StatusStore interface with no-op operations
type Store struct{}

// NewStore creates a new no-op status store
func NewStore() *Store {
	return &Store{}
}

// Write discards the snapshot
func (s *Store) Write(ctx context.Context, workerID string, snap *core.Snapshot) error {
	return nil
}

// Read always reports an absent snapshot
func (s *Store) Read(ctx context.Context, workerID string) (*core.Snapshot, error) {
	return nil, nil
}

// WritePID discards the liveness marker
func (s *Store) WritePID(ctx context.Context, workerID string, pid int) error {
	return nil
}

// ReadPID always reports an absent marker
func (s *Store) ReadPID(ctx context.Context, workerID string) (int, error) {
	return 0, nil
}

// RemovePID is a no-op
func (s *Store) RemovePID(ctx context.Context, workerID string) error {
	return nil
}

// Package redis implements a Redis-backed status store. It persists
// the same snapshot renderings as the file store under namespaced
// keys, for deployments where status is consumed by services that
// already speak Redis rather than by readers of a shared directory.
//
// Note the liveness marker still only proves a pid was recorded; the
// manager corroborates it against the local process table, so a Redis
// store is only meaningful when manager and workers share a host.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/BranchIntl/miniworker/core"
	"github.com/BranchIntl/miniworker/errors"
	"github.com/gomodule/redigo/redis"
)

// Store persists snapshots and liveness markers in Redis.
type Store struct {
	pool    *redis.Pool
	options Options
}

// NewStore creates a Redis status store. Call Connect before use.
func NewStore(options Options) *Store {
	return &Store{options: options}
}

// Connect establishes the connection pool and verifies connectivity.
func (s *Store) Connect(ctx context.Context) error {
	s.pool = createPool(s.options)

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("connection to %s: ping failed: %w", s.options.URI, err)
	}

	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		return s.pool.Close()
	}
	return nil
}

// Health checks the Redis connection health.
func (s *Store) Health() error {
	if s.pool == nil {
		return errors.ErrNotConnected
	}

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("connection to %s: health check failed: %w", s.options.URI, err)
	}

	return nil
}

// Write persists the structured snapshot and its human-readable
// rendering under separate keys.
func (s *Store) Write(ctx context.Context, workerID string, snap *core.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SET", s.statusKey(workerID), data); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}

	if _, err := conn.Do("SET", s.statsKey(workerID), snap.HumanString()); err != nil {
		return fmt.Errorf("failed to write stats rendering: %w", err)
	}

	return nil
}

// Read returns the last written snapshot, or (nil, nil) when absent or
// unparseable.
func (s *Store) Read(ctx context.Context, workerID string) (*core.Snapshot, error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", s.statusKey(workerID)))
	if err == redis.ErrNil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil
	}

	return &snap, nil
}

// WritePID records the liveness marker.
func (s *Store) WritePID(ctx context.Context, workerID string, pid int) error {
	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SET", s.pidKey(workerID), strconv.Itoa(pid)); err != nil {
		return fmt.Errorf("failed to write pid marker: %w", err)
	}
	return nil
}

// ReadPID returns the recorded pid, or (0, nil) when no marker exists
// or it cannot be parsed.
func (s *Store) ReadPID(ctx context.Context, workerID string) (int, error) {
	conn := s.pool.Get()
	defer conn.Close()

	pid, err := redis.Int(conn.Do("GET", s.pidKey(workerID)))
	if err == redis.ErrNil {
		return 0, nil
	}
	if err != nil {
		return 0, nil
	}
	if pid <= 0 {
		return 0, nil
	}

	return pid, nil
}

// RemovePID deletes the liveness marker.
func (s *Store) RemovePID(ctx context.Context, workerID string) error {
	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("DEL", s.pidKey(workerID)); err != nil {
		return fmt.Errorf("failed to remove pid marker: %w", err)
	}
	return nil
}

func (s *Store) statusKey(workerID string) string {
	return s.options.Namespace + "status:" + workerID
}

func (s *Store) statsKey(workerID string) string {
	return s.options.Namespace + "stats:" + workerID
}

func (s *Store) pidKey(workerID string) string {
	return s.options.Namespace + "pid:" + workerID
}

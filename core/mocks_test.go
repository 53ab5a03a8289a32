package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// memoryStore is an in-memory StatusStore for tests.
type memoryStore struct {
	mu        sync.Mutex
	snapshots map[string]*Snapshot
	pids      map[string]int

	writeErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		snapshots: make(map[string]*Snapshot),
		pids:      make(map[string]int),
	}
}

func (s *memoryStore) Write(ctx context.Context, workerID string, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.snapshots[workerID] = snap
	return nil
}

func (s *memoryStore) Read(ctx context.Context, workerID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[workerID], nil
}

func (s *memoryStore) WritePID(ctx context.Context, workerID string, pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pids[workerID] = pid
	return nil
}

func (s *memoryStore) ReadPID(ctx context.Context, workerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pids[workerID], nil
}

func (s *memoryStore) RemovePID(ctx context.Context, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pids, workerID)
	return nil
}

func (s *memoryStore) lastSnapshot(workerID string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[workerID]
}

func (s *memoryStore) pid(workerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pids[workerID]
}

// testWorker counts lifecycle calls and lets tests script DoWork.
type testWorker struct {
	id string

	setupCalls   int
	cleanupCalls int
	workCalls    int

	setupErr error
	work     func(ctx context.Context, rt *Runtime) error
}

func (w *testWorker) WorkerID() string {
	if w.id != "" {
		return w.id
	}
	return "test_worker"
}

func (w *testWorker) Setup(ctx context.Context, rt *Runtime) error {
	w.setupCalls++
	return w.setupErr
}

func (w *testWorker) Cleanup(ctx context.Context, rt *Runtime) error {
	w.cleanupCalls++
	return nil
}

func (w *testWorker) DoWork(ctx context.Context, rt *Runtime) error {
	w.workCalls++
	if w.work != nil {
		return w.work(ctx, rt)
	}
	return nil
}

// plainWorker implements only the required interface, no hooks.
type plainWorker struct {
	workCalls int
}

func (w *plainWorker) WorkerID() string { return "plain_worker" }

func (w *plainWorker) DoWork(ctx context.Context, rt *Runtime) error {
	w.workCalls++
	return nil
}

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

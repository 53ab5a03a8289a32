package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BranchIntl/miniworker/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func sampleSnapshot() *core.Snapshot {
	return &core.Snapshot{
		WorkerID: "w1",
		Status:   core.PhaseWaiting,
		CycleStats: core.CycleStats{
			TotalWorkCycles:     3,
			TotalProcessingTime: 4.5,
			LastWorkCycleTime:   1.5,
			StartTime:           1700000000,
		},
		Operations: map[string]core.OperationStats{
			"poll": {Count: 9, TotalDuration: 2.7, StartTime: 1700000000, RatePerHour: 120},
		},
		Timestamp: 1700000100,
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := sampleSnapshot()
	require.NoError(t, store.Write(ctx, "w1", want))

	got, err := store.Read(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, got)
}

func TestWriteProducesHumanReadableStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "w1", sampleSnapshot()))

	data, err := os.ReadFile(filepath.Join(store.Dir(), "w1.stats"))
	require.NoError(t, err)

	stats := string(data)
	assert.Contains(t, stats, "Worker ID: w1")
	assert.Contains(t, stats, "Total Cycles: 3")
	assert.Contains(t, stats, "poll: 120.0/hour (9 total)")
}

func TestReadMissingSnapshot(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Read(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestReadCorruptSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path := filepath.Join(store.Dir(), "w1.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	snap, err := store.Read(ctx, "w1")
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestPidLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pid, err := store.ReadPID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 0, pid)

	require.NoError(t, store.WritePID(ctx, "w1", 4242))

	pid, err = store.ReadPID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	data, err := os.ReadFile(filepath.Join(store.Dir(), "w1.pid"))
	require.NoError(t, err)
	assert.Equal(t, "4242\n", string(data))

	require.NoError(t, store.RemovePID(ctx, "w1"))
	pid, err = store.ReadPID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 0, pid)

	// Removing again is not an error.
	assert.NoError(t, store.RemovePID(ctx, "w1"))
}

func TestReadPidUnparseable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path := filepath.Join(store.Dir(), "w1.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid\n"), 0o644))

	pid, err := store.ReadPID(ctx, "w1")
	assert.NoError(t, err)
	assert.Equal(t, 0, pid)

	require.NoError(t, os.WriteFile(path, []byte("-7\n"), 0o644))
	pid, err = store.ReadPID(ctx, "w1")
	assert.NoError(t, err)
	assert.Equal(t, 0, pid)
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.Write(ctx, "w1", sampleSnapshot()))
	require.NoError(t, store.Write(ctx, "w2", sampleSnapshot()))
	require.NoError(t, store.WritePID(ctx, "w3", 1)) // pid only, no snapshot

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"w1", "w2"}, ids)
}

func TestNewStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "stats")

	store, err := NewStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(store.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "w1", sampleSnapshot()))

	matches, err := filepath.Glob(filepath.Join(store.Dir(), "*.tmp*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

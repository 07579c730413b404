package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWatchDebounces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stl")
	require.NoError(t, os.WriteFile(path, []byte("solid a"), 0o644))

	fw, err := NewFileWatcher(100*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer fw.Close()

	var calls atomic.Int32
	var changed atomic.Value
	require.NoError(t, fw.Watch([]string{path}, func(p string) {
		changed.Store(p)
		calls.Add(1)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fw.Run(ctx) }()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("solid b"), 0o644))
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, changed.Load())
}

func TestWatchMissingFile(t *testing.T) {
	fw, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()

	err = fw.Watch([]string{filepath.Join(t.TempDir(), "missing.scad")}, func(string) {})
	assert.Error(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	fw, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRemoveAllStopsCallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part.scad")
	require.NoError(t, os.WriteFile(path, []byte("cube(1);"), 0o644))

	fw, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()

	var calls atomic.Int32
	require.NoError(t, fw.Watch([]string{path}, func(string) { calls.Add(1) }))
	fw.Start()
	require.NoError(t, fw.RemoveAll())

	require.NoError(t, os.WriteFile(path, []byte("cube(2);"), 0o644))
	assert.Never(t, func() bool { return calls.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestWatchResolvedPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.scad")
	part := filepath.Join(dir, "part.scad")
	require.NoError(t, os.WriteFile(main, []byte("cube(1);"), 0o644))
	require.NoError(t, os.WriteFile(part, []byte("sphere(1);"), 0o644))

	fw, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()

	var withPart atomic.Bool
	resolve := func() ([]string, error) {
		if withPart.Load() {
			return []string{main, part}, nil
		}
		return []string{main}, nil
	}

	var calls atomic.Int32
	require.NoError(t, fw.WatchResolved(resolve, func(string) { calls.Add(1) }))
	fw.Start()

	withPart.Store(true)
	require.NoError(t, os.WriteFile(main, []byte("use <part.scad>"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(part, []byte("sphere(2);"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

type countingRunner struct {
	mu       sync.Mutex
	runs     int
	triggers []string
	busy     int // runs to reject with ErrPipelineBusy first
	done     chan struct{}
}

func (r *countingRunner) Run(ctx context.Context) (*core.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy > 0 {
		r.busy--
		return nil, core.ErrPipelineBusy
	}
	r.runs++
	r.triggers = append(r.triggers, core.TriggerFromContext(ctx))
	select {
	case r.done <- struct{}{}:
	default:
	}
	return &core.RunReport{RunID: "r"}, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func TestRelevant(t *testing.T) {
	w := New("/data", time.Second, nil, "fields.csv", "input.csv", "result.csv", "deleted.csv")

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"new source", fsnotify.Event{Name: "/data/export.csv", Op: fsnotify.Create}, true},
		{"modified source", fsnotify.Event{Name: "/data/export.CSV", Op: fsnotify.Write}, true},
		{"removed source", fsnotify.Event{Name: "/data/export.csv", Op: fsnotify.Remove}, true},
		{"renamed source", fsnotify.Event{Name: "/data/export.csv", Op: fsnotify.Rename}, true},
		{"chmod only", fsnotify.Event{Name: "/data/export.csv", Op: fsnotify.Chmod}, false},
		{"pipeline output", fsnotify.Event{Name: "/data/result.csv", Op: fsnotify.Create}, false},
		{"reference file", fsnotify.Event{Name: "/data/Fields.csv", Op: fsnotify.Write}, false},
		{"temp file", fsnotify.Event{Name: "/data/.result.csv.123", Op: fsnotify.Create}, false},
		{"report", fsnotify.Event{Name: "/data/report.yaml", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Relevant(tt.ev))
		})
	}
}

func TestWatcher_DebouncedRun(t *testing.T) {
	dir := t.TempDir()
	runner := &countingRunner{done: make(chan struct{}, 1)}
	w := New(dir, 100*time.Millisecond, runner, "result.csv")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "export.csv"), []byte("id\n1\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-runner.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for watch run")
	}

	// A burst of writes collapses into one run.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, runner.count())
	assert.Equal(t, []string{core.TriggerWatch}, runner.triggers)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestWatcher_RetriesWhenBusy(t *testing.T) {
	dir := t.TempDir()
	runner := &countingRunner{busy: 1, done: make(chan struct{}, 1)}
	w := New(dir, 50*time.Millisecond, runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "export.csv"), []byte("id\n"), 0o644))

	select {
	case <-runner.done:
	case <-time.After(3 * time.Second):
		t.Fatal("busy run was not retried")
	}
	assert.Equal(t, 1, runner.count())
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), time.Second, &countingRunner{})
	assert.Error(t, w.Run(context.Background()))
}

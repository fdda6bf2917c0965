// Package watch runs the pipeline when source files in the data directory
// change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// Watcher triggers a full pipeline run once the data directory has been
// quiet for the debounce period after a source CSV changed.
type Watcher struct {
	dir      string
	debounce time.Duration
	runner   core.Runner
	ignore   map[string]bool
}

// New creates a Watcher over dir. ignore lists file names (the reference
// file and the pipeline's own outputs) whose changes never trigger a run.
func New(dir string, debounce time.Duration, runner core.Runner, ignore ...string) *Watcher {
	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		runner:   runner,
		ignore:   make(map[string]bool, len(ignore)),
	}
	for _, name := range ignore {
		if name != "" {
			w.ignore[strings.ToLower(filepath.Base(name))] = true
		}
	}
	return w
}

// Relevant reports whether ev may change the merged dataset.
func (w *Watcher) Relevant(ev fsnotify.Event) bool {
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if !strings.EqualFold(filepath.Ext(base), ".csv") || w.ignore[strings.ToLower(base)] {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	slog.Info("watching data directory", "dir", w.dir, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.Relevant(ev) {
				slog.Debug("source changed", "file", ev.Name, "op", ev.Op.String())
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)

		case <-timer.C:
			if w.trigger(ctx) {
				timer.Reset(w.debounce)
			}
		}
	}
}

// trigger runs the pipeline and reports whether it should be retried.
func (w *Watcher) trigger(ctx context.Context) (retry bool) {
	report, err := w.runner.Run(core.ContextWithTrigger(ctx, core.TriggerWatch))
	switch {
	case errors.Is(err, core.ErrPipelineBusy):
		slog.Info("watch run deferred, pipeline busy")
		return true
	case errors.Is(err, context.Canceled):
		return false
	case err != nil:
		slog.Error("watch run failed", "error", err)
	default:
		slog.Info("watch run completed", "run_id", report.RunID, "final", report.Counts.Final)
	}
	return false
}

package core

// scheduler.go runs the pipeline periodically while the server is up.
//
// The scheduler is long-running and stops with its context. A failed or
// skipped run is logged and never stops the scheduler. A tick that finds
// another run in progress is skipped rather than queued.

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Runner is anything that performs one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*RunReport, error)
}

// StartScheduler runs r every interval until ctx is cancelled. The first
// run happens after one interval, not on start. A non-positive interval
// returns immediately.
func StartScheduler(ctx context.Context, r Runner, interval time.Duration) {
	if interval <= 0 {
		return
	}

	slog.Info("pipeline scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline scheduler stopped")
			return
		case <-ticker.C:
			runScheduled(ctx, r)
		}
	}
}

func runScheduled(ctx context.Context, r Runner) {
	start := time.Now()

	report, err := r.Run(ContextWithTrigger(ctx, TriggerSchedule))
	switch {
	case errors.Is(err, ErrPipelineBusy):
		slog.Info("scheduled run skipped, pipeline busy")
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		slog.Error("scheduled run failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	default:
		slog.Info("scheduled run completed",
			"run_id", report.RunID,
			"final", report.Counts.Final,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

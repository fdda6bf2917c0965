package core

// run_limiter.go serializes pipeline runs.
//
// Every stage reads and writes well-known paths in the data directory with
// no per-run namespacing, so two runs at once would corrupt each other's
// outputs. All entry points (HTTP, CLI, watcher, scheduler) take the
// limiter's single slot before running. A caller that cannot get the slot
// within maxWait fails with ErrPipelineBusy.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxWaitTime is how long to wait for the slot before giving up.
const DefaultMaxWaitTime = 30 * time.Second

// RunLimiter is a semaphore of capacity one guarding full pipeline runs.
type RunLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu      sync.RWMutex
	active  int
	holder  string
	started time.Time
}

// NewRunLimiter creates a limiter that waits at most maxWait for the slot.
func NewRunLimiter(maxWait time.Duration) *RunLimiter {
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &RunLimiter{
		semaphore: make(chan struct{}, 1),
		maxWait:   maxWait,
	}
}

// Acquire takes the slot for holder, waiting up to maxWait.
// The caller MUST call Release when the run completes.
func (l *RunLimiter) Acquire(ctx context.Context, holder string) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.take(holder)
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrPipelineBusy
	}
}

// TryAcquire takes the slot without blocking.
func (l *RunLimiter) TryAcquire(holder string) bool {
	select {
	case l.semaphore <- struct{}{}:
		l.take(holder)
		return true
	default:
		return false
	}
}

func (l *RunLimiter) take(holder string) {
	l.mu.Lock()
	l.active++
	l.holder = holder
	l.started = time.Now()
	l.mu.Unlock()
}

// Release frees the slot. Must be called exactly once per successful acquire.
func (l *RunLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.holder = ""
	l.started = time.Time{}
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns 1 while a run holds the slot, otherwise 0.
func (l *RunLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no run holds the slot or ctx is done.
// Used on shutdown so an in-flight run can finish writing its outputs.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunLimiterStatus is a snapshot of the limiter.
type RunLimiterStatus struct {
	Busy    bool      `json:"busy"`
	Holder  string    `json:"holder,omitempty"`
	Since   time.Time `json:"since,omitempty"`
	MaxWait string    `json:"max_wait"`
}

// Status returns the current limiter state for monitoring.
func (l *RunLimiter) Status() RunLimiterStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return RunLimiterStatus{
		Busy:    l.active > 0,
		Holder:  l.holder,
		Since:   l.started,
		MaxWait: l.maxWait.String(),
	}
}

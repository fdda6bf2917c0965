package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunLimiter_AcquireRelease(t *testing.T) {
	limiter := NewRunLimiter(time.Second)

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("initial ActiveCount = %d, want 0", got)
	}

	if err := limiter.Acquire(context.Background(), "cli"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	status := limiter.Status()
	if !status.Busy || status.Holder != "cli" {
		t.Errorf("Status = %+v, want busy held by cli", status)
	}
	if status.Since.IsZero() {
		t.Error("Status.Since should be set while held")
	}

	limiter.Release()

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("after Release, ActiveCount = %d, want 0", got)
	}
	if status := limiter.Status(); status.Busy || status.Holder != "" {
		t.Errorf("Status after Release = %+v, want idle", status)
	}
}

func TestRunLimiter_BusyAfterMaxWait(t *testing.T) {
	limiter := NewRunLimiter(100 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx, "http"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	start := time.Now()
	err := limiter.Acquire(ctx, "watch")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrPipelineBusy) {
		t.Errorf("expected ErrPipelineBusy, got %v", err)
	}
	if elapsed < 90*time.Millisecond {
		t.Errorf("gave up too fast: %v", elapsed)
	}
}

func TestRunLimiter_ContextCancelled(t *testing.T) {
	limiter := NewRunLimiter(5 * time.Second)
	if !limiter.TryAcquire("schedule") {
		t.Fatal("TryAcquire on idle limiter should succeed")
	}
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := limiter.Acquire(ctx, "http")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunLimiter_TryAcquire(t *testing.T) {
	limiter := NewRunLimiter(time.Second)

	if !limiter.TryAcquire("a") {
		t.Fatal("first TryAcquire should succeed")
	}
	if limiter.TryAcquire("b") {
		t.Error("second TryAcquire should fail while held")
	}

	limiter.Release()

	if !limiter.TryAcquire("c") {
		t.Error("TryAcquire after Release should succeed")
	}
	limiter.Release()
}

func TestRunLimiter_SerializesRuns(t *testing.T) {
	limiter := NewRunLimiter(5 * time.Second)

	var (
		wg      sync.WaitGroup
		running atomic.Int32
		maxSeen atomic.Int32
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background(), "test"); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer limiter.Release()

			n := running.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}()
	}
	wg.Wait()

	if got := maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent runs = %d, want 1", got)
	}
}

func TestRunLimiter_WaitForDrain(t *testing.T) {
	limiter := NewRunLimiter(time.Second)
	if !limiter.TryAcquire("run") {
		t.Fatal("TryAcquire failed")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := limiter.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain: %v", err)
	}
}

func TestRunLimiter_WaitForDrainTimeout(t *testing.T) {
	limiter := NewRunLimiter(time.Second)
	if !limiter.TryAcquire("run") {
		t.Fatal("TryAcquire failed")
	}
	defer limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestNewRunLimiter_DefaultWait(t *testing.T) {
	limiter := NewRunLimiter(0)
	if got := limiter.Status().MaxWait; got != DefaultMaxWaitTime.String() {
		t.Errorf("MaxWait = %s, want %s", got, DefaultMaxWaitTime)
	}
}

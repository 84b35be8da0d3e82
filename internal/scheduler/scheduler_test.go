package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alnah/go-doc2pdf/internal/logging"
)

func newTestScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s := New(cfg, logging.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	if got := ResolveWorkers(3); got != 3 {
		t.Errorf("ResolveWorkers(3) = %d, want 3", got)
	}
	for _, n := range []int{0, -1} {
		if got := ResolveWorkers(n); got < MinWorkers {
			t.Errorf("ResolveWorkers(%d) = %d, want >= %d", n, got, MinWorkers)
		}
	}
}

func TestSubmit_ReturnsValue(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{Workers: 2, QueueSize: 4})

	f := Submit(s, func(context.Context) (string, error) { return "pdf", nil })
	got, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got != "pdf" {
		t.Errorf("Wait() = %q, want pdf", got)
	}
}

func TestSubmit_PropagatesError(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{Workers: 1})
	want := errors.New("engine failed")

	_, err := Submit(s, func(context.Context) (int, error) { return 0, want }).Wait(context.Background())
	if !errors.Is(err, want) {
		t.Errorf("Wait() error = %v, want %v", err, want)
	}
}

func TestSubmit_PanicResolvesFuture(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{Workers: 1})

	_, err := Submit(s, func(context.Context) (int, error) { panic("boom") }).Wait(context.Background())
	if !errors.Is(err, ErrTaskPanic) {
		t.Fatalf("Wait() error = %v, want ErrTaskPanic", err)
	}

	// The worker survives the panic.
	got, err := Submit(s, func(context.Context) (int, error) { return 7, nil }).Wait(context.Background())
	if err != nil || got != 7 {
		t.Errorf("after panic Wait() = (%d, %v), want (7, nil)", got, err)
	}
}

func TestSubmit_CallerRunsWhenQueueFull(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := Submit(s, func(context.Context) (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	<-started

	// Occupies the single queue slot.
	queued := Submit(s, func(context.Context) (int, error) { return 2, nil })

	// Queue is full: this one must run before Submit returns.
	callerRan := false
	overflow := Submit(s, func(context.Context) (int, error) {
		callerRan = true
		return 3, nil
	})

	select {
	case <-overflow.Done():
	default:
		t.Fatal("overflow task was not run on the caller")
	}
	if !callerRan {
		t.Error("overflow task did not run")
	}
	if got := s.Stats().CallerRun; got != 1 {
		t.Errorf("Stats().CallerRun = %d, want 1", got)
	}

	close(release)
	for i, f := range []*Future[int]{blocker, queued} {
		if _, err := f.Wait(context.Background()); err != nil {
			t.Errorf("future %d error = %v", i, err)
		}
	}
}

func TestSubmit_AfterShutdown(t *testing.T) {
	t.Parallel()

	s := New(Config{Workers: 1}, logging.Nop())
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	_, err := Submit(s, func(context.Context) (int, error) { return 1, nil }).Wait(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Wait() error = %v, want ErrClosed", err)
	}
}

func TestFuture_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{Workers: 1})
	release := make(chan struct{})
	defer close(release)

	f := Submit(s, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestAfter_DoesNotBlockCaller(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{Workers: 1})
	ran := make(chan struct{})

	start := time.Now()
	s.After(50*time.Millisecond, func(context.Context) { close(ran) })
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("After blocked caller for %v", elapsed)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed task never ran")
	}
}

func TestAfter_RunsWhenQueueFull(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, Config{Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	Submit(s, func(context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	})
	<-started
	Submit(s, func(context.Context) (int, error) { return 0, nil })

	ran := make(chan struct{})
	s.After(time.Millisecond, func(context.Context) { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed task starved by a full queue")
	}
	close(release)
}

func TestShutdown_WaitsForInFlight(t *testing.T) {
	t.Parallel()

	s := New(Config{Workers: 2, ShutdownGrace: 2 * time.Second}, logging.Nop())

	var completed atomic.Int32
	futures := make([]*Future[int], 0, 4)
	for i := 0; i < 4; i++ {
		futures = append(futures, Submit(s, func(context.Context) (int, error) {
			time.Sleep(20 * time.Millisecond)
			completed.Add(1)
			return 0, nil
		}))
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := completed.Load(); got != 4 {
		t.Errorf("completed = %d, want 4", got)
	}
	for _, f := range futures {
		select {
		case <-f.Done():
		default:
			t.Error("future unresolved after Shutdown")
		}
	}
}

func TestShutdown_ForceCancelsStragglers(t *testing.T) {
	t.Parallel()

	s := New(Config{Workers: 1, ShutdownGrace: 30 * time.Millisecond}, logging.Nop())

	started := make(chan struct{})
	f := Submit(s, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started

	err := s.Shutdown(context.Background())
	if !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("Shutdown() error = %v, want ErrShutdownTimeout", err)
	}
	if _, err := f.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("straggler error = %v, want context.Canceled", err)
	}
}

func TestShutdown_FlushesDelayedTasks(t *testing.T) {
	t.Parallel()

	s := New(Config{Workers: 1}, logging.Nop())

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 3; i++ {
		s.After(time.Hour, func(context.Context) {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	if got := s.Stats().Delayed; got != 3 {
		t.Errorf("Stats().Delayed = %d, want 3", got)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if ran != 3 {
		t.Errorf("delayed tasks run = %d, want 3", ran)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()

	s := New(Config{Workers: 1}, logging.Nop())
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown() error = %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

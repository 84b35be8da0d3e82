// Package scheduler runs conversion work on a fixed set of workers fed by a
// bounded queue.
//
// When the queue is full, Submit runs the task on the submitting goroutine,
// which slows callers down instead of rejecting their work. Delayed tasks
// (see After) wait on a timer and are never run by the caller.
//
// Workers are plain goroutines and do not keep the process alive; call
// Shutdown to let in-flight work finish.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phuslu/log"
)

// Sizing defaults.
const (
	// MinWorkers is the floor for the automatic worker count.
	MinWorkers = 8

	// workersPerCPU favours I/O-bound work waiting on external engines.
	workersPerCPU = 4

	DefaultQueueSize     = 200
	DefaultShutdownGrace = 30 * time.Second

	// forceGrace bounds the wait for stragglers after their context is canceled.
	forceGrace = 5 * time.Second
)

// Sentinel errors for scheduler operations.
var (
	ErrClosed          = errors.New("scheduler is shut down")
	ErrShutdownTimeout = errors.New("scheduler shutdown grace period exceeded")
	ErrTaskPanic       = errors.New("task panicked")
)

// Config holds scheduler settings. Zero values select defaults.
type Config struct {
	Workers       int
	QueueSize     int
	ShutdownGrace time.Duration
}

// ResolveWorkers returns n when positive, otherwise max(MinWorkers, GOMAXPROCS*4).
func ResolveWorkers(n int) int {
	if n > 0 {
		return n
	}
	return max(MinWorkers, runtime.GOMAXPROCS(0)*workersPerCPU)
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
	QueueSize int   `json:"queue_size"`
	Running   int64 `json:"running"`
	Delayed   int   `json:"delayed"`
	CallerRun int64 `json:"caller_runs"`
}

// Scheduler is a fixed-size worker pool with a bounded queue.
type Scheduler struct {
	workers int
	grace   time.Duration
	logger  *log.Logger

	queue  chan func(context.Context)
	ctx    context.Context // canceled to force stragglers out
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	delayed map[*delayedTask]struct{}

	running    atomic.Int64
	callerRuns atomic.Int64
}

type delayedTask struct {
	timer *time.Timer
	run   func(context.Context)
}

// New starts a scheduler with cfg.Workers workers.
func New(cfg Config, logger *log.Logger) *Scheduler {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	grace := cfg.ShutdownGrace
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		workers: ResolveWorkers(cfg.Workers),
		grace:   grace,
		logger:  logger,
		queue:   make(chan func(context.Context), queueSize),
		ctx:     ctx,
		cancel:  cancel,
		delayed: make(map[*delayedTask]struct{}),
	}

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.logger.Info().
		Int("num_workers", s.workers).
		Int("queue_size", queueSize).
		Msg("scheduler started")
	return s
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for task := range s.queue {
		s.execute(task)
	}
	s.logger.Debug().Int("worker", id).Msg("worker stopped")
}

func (s *Scheduler) execute(task func(context.Context)) {
	s.running.Add(1)
	defer s.running.Add(-1)
	task(s.ctx)
}

// enqueue hands task to a worker. When the queue is full it runs fallback
// instead and reports false. It reports an error once the scheduler is closed.
func (s *Scheduler) enqueue(task func(context.Context)) (queued bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	select {
	case s.queue <- task:
		return true, nil
	default:
		return false, nil
	}
}

// Submit schedules fn and returns its future. If the queue is full, fn runs
// on the calling goroutine before Submit returns. After Shutdown the future
// resolves immediately with ErrClosed.
func Submit[T any](s *Scheduler, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	task := func(ctx context.Context) { f.resolve(protect(ctx, fn)) }

	queued, err := s.enqueue(task)
	if err != nil {
		var zero T
		f.resolve(zero, err)
		return f
	}
	if !queued {
		s.callerRuns.Add(1)
		s.logger.Debug().Msg("queue full, running task on caller")
		s.execute(task)
	}
	return f
}

// After runs fn once delay has elapsed. The wait holds no worker. When the
// timer fires fn is queued, or run on the timer goroutine if the queue is
// full. After never blocks and never runs fn on the caller.
func (s *Scheduler) After(delay time.Duration, fn func(context.Context)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		go s.runDetached(fn)
		return
	}
	t := &delayedTask{run: fn}
	s.delayed[t] = struct{}{}
	t.timer = time.AfterFunc(delay, func() { s.fire(t) })
	s.mu.Unlock()
}

func (s *Scheduler) fire(t *delayedTask) {
	s.mu.Lock()
	if _, ok := s.delayed[t]; !ok {
		// Shutdown already took it over.
		s.mu.Unlock()
		return
	}
	delete(s.delayed, t)
	s.mu.Unlock()

	queued, err := s.enqueue(func(ctx context.Context) { runSafely(ctx, t.run, s.logger) })
	if err != nil || !queued {
		s.runDetached(t.run)
	}
}

func (s *Scheduler) runDetached(fn func(context.Context)) {
	s.execute(func(ctx context.Context) { runSafely(ctx, fn, s.logger) })
}

// Shutdown stops accepting work and waits for queued and running tasks. If
// they are still running after the grace period (or ctx ends first) their
// context is canceled and ErrShutdownTimeout is returned. Delayed tasks that
// have not fired yet run immediately.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	pending := make([]*delayedTask, 0, len(s.delayed))
	for t := range s.delayed {
		// A timer that already fired is left for fire to run.
		if t.timer.Stop() {
			pending = append(pending, t)
			delete(s.delayed, t)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	graceTimer := time.NewTimer(s.grace)
	defer graceTimer.Stop()

	var err error
	select {
	case <-done:
	case <-graceTimer.C:
		err = s.forceStop(done)
	case <-ctx.Done():
		err = s.forceStop(done)
	}

	for _, t := range pending {
		runSafely(s.ctx, t.run, s.logger)
	}
	s.cancel()

	s.logger.Info().Int("flushed_delayed", len(pending)).Msg("scheduler stopped")
	return err
}

func (s *Scheduler) forceStop(done <-chan struct{}) error {
	running := s.running.Load()
	s.logger.Warn().
		Int64("running", running).
		Dur("grace", s.grace).
		Msg("grace period exceeded, canceling remaining tasks")
	s.cancel()

	select {
	case <-done:
	case <-time.After(forceGrace):
		s.logger.Error().Int64("running", s.running.Load()).Msg("tasks ignored cancellation")
	}
	return fmt.Errorf("%w: %d task(s) still running after %s", ErrShutdownTimeout, running, s.grace)
}

// Closed reports whether Shutdown has been called.
func (s *Scheduler) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Stats returns current queue and worker counters.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	delayed := len(s.delayed)
	s.mu.RUnlock()
	return Stats{
		Workers:   s.workers,
		Queued:    len(s.queue),
		QueueSize: cap(s.queue),
		Running:   s.running.Load(),
		Delayed:   delayed,
		CallerRun: s.callerRuns.Load(),
	}
}

// protect runs fn, converting a panic into ErrTaskPanic.
func protect[T any](ctx context.Context, fn func(context.Context) (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			val, err = zero, fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return fn(ctx)
}

func runSafely(ctx context.Context, fn func(context.Context), logger *log.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprint(r)).Msg("delayed task panicked")
		}
	}()
	fn(ctx)
}

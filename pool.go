package doc2pdf

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one render can run.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent renders to limit Chrome memory.
	MaxPoolSize = 8

	// DefaultPoolSize is the configured size when none is given.
	DefaultPoolSize = 4

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2

	// DefaultAcquireTimeout bounds the wait for a render permit.
	DefaultAcquireTimeout = 30 * time.Second
)

// ResolvePoolSize returns the number of concurrent renders to allow:
// the configured value capped at half the available CPUs, never below one.
// A non-positive configured value uses the CPU-based size, capped at
// MaxPoolSize.
func ResolvePoolSize(configured int) int {
	byCPU := max(MinPoolSize, runtime.GOMAXPROCS(0)/cpuDivisor)
	if configured <= 0 {
		return min(byCPU, MaxPoolSize)
	}
	return max(MinPoolSize, min(configured, byCPU))
}

// PoolStats is a point-in-time view of a renderer pool.
type PoolStats struct {
	Available   bool   `json:"available"`
	Size        int    `json:"size"`
	Outstanding int64  `json:"outstanding"`
	Reason      string `json:"reason,omitempty"`
}

// RendererPool bounds concurrent use of one long-lived Renderer with permits.
type RendererPool struct {
	engine         Renderer
	cause          error
	size           int
	acquireTimeout time.Duration

	sem         *semaphore.Weighted
	outstanding atomic.Int64

	mu     sync.Mutex
	closed bool
}

// NewRendererPool wraps engine with size permits. Acquire waits at most
// acquireTimeout (DefaultAcquireTimeout when zero).
func NewRendererPool(engine Renderer, size int, acquireTimeout time.Duration) *RendererPool {
	if size < MinPoolSize {
		size = MinPoolSize
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &RendererPool{
		engine:         engine,
		size:           size,
		acquireTimeout: acquireTimeout,
		sem:            semaphore.NewWeighted(int64(size)),
	}
}

// NewUnavailableRendererPool returns a pool whose engine failed to start.
// Every acquisition fails immediately with ErrRendererUnavailable.
func NewUnavailableRendererPool(cause error) *RendererPool {
	return &RendererPool{cause: cause}
}

// Available reports whether the pool has a working engine.
func (p *RendererPool) Available() bool {
	return p != nil && p.engine != nil
}

// Size returns the number of permits.
func (p *RendererPool) Size() int {
	return p.size
}

// Outstanding returns the number of permits currently held.
func (p *RendererPool) Outstanding() int {
	return int(p.outstanding.Load())
}

// Stats returns availability and permit counters.
func (p *RendererPool) Stats() PoolStats {
	s := PoolStats{Available: p.Available()}
	if p == nil {
		return s
	}
	s.Size = p.size
	s.Outstanding = p.outstanding.Load()
	if p.cause != nil {
		s.Reason = p.cause.Error()
	}
	return s
}

// Permit is a held render slot. Release is safe to call more than once.
type Permit struct {
	pool *RendererPool
	once sync.Once
}

// Release returns the permit to its pool.
func (pm *Permit) Release() {
	pm.once.Do(func() {
		pm.pool.outstanding.Add(-1)
		pm.pool.sem.Release(1)
	})
}

// Acquire waits for a permit. It fails immediately with
// ErrRendererUnavailable when the engine is down, and with ErrBusy when no
// permit frees up within the acquire timeout.
func (p *RendererPool) Acquire(ctx context.Context) (*Permit, error) {
	if !p.Available() {
		if p != nil && p.cause != nil {
			return nil, fmt.Errorf("%w: %v", ErrRendererUnavailable, p.cause)
		}
		return nil, ErrRendererUnavailable
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrShuttingDown
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		// The caller gave up: report that rather than a busy pool.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: no renderer free after %s", ErrBusy, p.acquireTimeout)
	}
	p.outstanding.Add(1)
	return &Permit{pool: p}, nil
}

// WithPermit runs fn while holding a permit. The permit is released on every
// path, including a panic in fn.
func (p *RendererPool) WithPermit(ctx context.Context, fn func(Renderer) error) error {
	permit, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer permit.Release()
	return fn(p.engine)
}

// RenderOnce renders htmlContent to outputPath under a permit.
func (p *RendererPool) RenderOnce(ctx context.Context, htmlContent, outputPath string, opts *PDFOptions) error {
	return p.WithPermit(ctx, func(r Renderer) error {
		return r.Render(ctx, htmlContent, outputPath, opts)
	})
}

// Close stops new acquisitions and closes the engine once in-flight renders
// have released their permits or ctx ends.
func (p *RendererPool) Close(ctx context.Context) error {
	if !p.Available() {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var errs []error
	// Taking every permit means no render is running.
	if err := p.sem.Acquire(ctx, int64(p.size)); err != nil {
		errs = append(errs, fmt.Errorf("waiting for renders: %w", err))
	}
	if err := p.engine.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

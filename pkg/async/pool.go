package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frontendmu/frontend.mu/pkg/observability"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown.
	ErrPoolClosed = errors.New("worker pool shut down")
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("worker pool queue full")
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

// PoolConfig configures a WorkerPool.
type PoolConfig struct {
	// Name identifies the pool in logs.
	Name string
	// Workers is the number of concurrent tasks. Defaults to 1.
	Workers int
	// Queue is the number of tasks waiting beyond the running ones.
	// Defaults to Workers*2.
	Queue int
	// Timeout bounds each task. Defaults to 30s.
	Timeout time.Duration
}

// WorkerPool manages a pool of workers that process tasks from a queue.
type WorkerPool struct {
	config PoolConfig
	logger *observability.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	workCh chan Task
	wg     sync.WaitGroup

	completed atomic.Uint64
	failed    atomic.Uint64
}

// NewWorkerPool starts the workers. Tasks run under a context derived from
// ctx that outlives request cancellation only as long as ctx does.
func NewWorkerPool(ctx context.Context, config PoolConfig, logger *observability.Logger) *WorkerPool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Queue <= 0 {
		config.Queue = config.Workers * 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &WorkerPool{
		config: config,
		logger: logger.WithComponent("async").WithField("pool", config.Name),
		ctx:    ctx,
		cancel: cancel,
		workCh: make(chan Task, config.Queue),
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues fn without blocking.
func (p *WorkerPool) Submit(fn Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.workCh <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued and running tasks to
// finish. When ctx expires first the remaining tasks are cancelled and an
// error is returned.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.workCh)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("worker pool %s shutdown timed out: %w", p.config.Name, ctx.Err())
	}
}

// Stats reports how many tasks completed and how many failed (error or
// panic).
func (p *WorkerPool) Stats() (completed, failed uint64) {
	return p.completed.Load(), p.failed.Load()
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for fn := range p.workCh {
		p.run(fn)
	}
}

func (p *WorkerPool) run(fn Task) {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.logger.WithFields(map[string]interface{}{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			}).Error("Recovered from panic in background task")
		}
	}()

	if err := fn(ctx); err != nil {
		p.failed.Add(1)
		p.logger.WithError(err).Warn("Background task failed")
		return
	}
	p.completed.Add(1)
}

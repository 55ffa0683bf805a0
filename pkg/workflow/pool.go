package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/atsflow/atsflow/pkg/models"
	"golang.org/x/sync/semaphore"
)

// ExecuteFunc runs one execution to completion or to its next delay.
type ExecuteFunc func(ctx context.Context, executionID string) error

// job is a queued unit of work. A nil run means ExecuteFunc.
type job struct {
	executionID string
	run         func(context.Context) error
}

// Pool is a Dispatcher with a bounded queue and a bounded number of
// concurrently running executions. New executions and resumed steps share
// the queue and the worker limit.
type Pool struct {
	logger  *slog.Logger
	queue   chan job
	workers *semaphore.Weighted
	limit   int64
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}

	if queueSize < 0 {
		queueSize = 0
	}

	return &Pool{
		logger:  logger.With("module", "execution_pool"),
		queue:   make(chan job, queueSize),
		workers: semaphore.NewWeighted(int64(workers)),
		limit:   int64(workers),
		done:    make(chan struct{}),
	}
}

// Dispatch enqueues the execution or fails fast with ErrQueueFull.
func (p *Pool) Dispatch(_ context.Context, execution *models.WorkflowExecution) error {
	return p.enqueue(job{executionID: execution.ID})
}

// Submit enqueues run on behalf of executionID. It has the shape of
// SubmitFunc.
func (p *Pool) Submit(_ context.Context, executionID string, run func(context.Context) error) error {
	return p.enqueue(job{executionID: executionID, run: run})
}

func (p *Pool) enqueue(j job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start consumes the queue until Stop is called or ctx is cancelled. A running
// execution is not interrupted by either; it keeps the values of ctx but not
// its cancellation.
func (p *Pool) Start(ctx context.Context, execute ExecuteFunc) {
	loopCtx, cancel := context.WithCancel(ctx)
	runCtx := context.WithoutCancel(ctx)

	p.mu.Lock()
	p.started = true
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		defer close(p.done)

		for {
			select {
			case <-loopCtx.Done():
				return
			case j := <-p.queue:
				err := p.workers.Acquire(loopCtx, 1)
				if err != nil {
					p.logger.WarnContext(ctx, "Pool stopping, work left queued", "execution_id", j.executionID)

					return
				}

				p.wg.Add(1)

				go func() {
					defer p.wg.Done()
					defer p.workers.Release(1)

					var err error
					if j.run != nil {
						err = j.run(runCtx)
					} else {
						err = execute(runCtx, j.executionID)
					}

					if err != nil {
						p.logger.ErrorContext(runCtx, "Execution failed", "execution_id", j.executionID, "error", err)
					}
				}()
			}
		}
	}()
}

// Stop rejects new work and waits for running executions to return. Queued
// executions stay pending and are picked up by Engine.Recover. Queued steps
// keep their lease and become due again when it expires.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	started := p.started

	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	finished := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Capacity returns the number of concurrent executions allowed.
func (p *Pool) Capacity() int64 {
	return p.limit
}

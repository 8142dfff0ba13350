package stride

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jlammi/stride/internal/jobqueue"
	"github.com/jlammi/stride/pkg/worker"
)

// LocalPool bundles an in-memory Executor, an in-memory job queue, and a
// Worker to provide a simple process-local pool for continuous submission
// of independent operations.
//
// Typical usage:
//
//	pool := stride.NewLocalPool()
//
//	_ = pool.StartWorkers(ctx, 4)
//	_ = pool.SubmitAsync(ctx, "refresh-cache", op, nil)
//	...
//	pool.Stop()
//
// Outcomes are inspected through pool.Executor's run history.
type LocalPool struct {
	// Executor is the in-memory executor used by this pool.
	Executor Executor

	// Queue is the in-memory job queue consumed by the Worker.
	Queue jobqueue.Queue

	// Worker executes jobs from Queue using Executor.
	Worker *worker.Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocalPool constructs a LocalPool backed by an in-memory executor,
// in-memory queue, and a Worker with default config.
//
// This is intended for local development, tests, and simple single-process
// deployments.
func NewLocalPool() *LocalPool {
	e := NewInMemoryExecutor()
	q := jobqueue.NewInMemoryQueue(jobqueue.DefaultCapacity)
	w := worker.New(e, q)

	return &LocalPool{
		Executor: e,
		Queue:    q,
		Worker:   w,
	}
}

// StartWorkers starts 'concurrency' worker goroutines that continuously call
// Worker.ProcessOne(ctx) until the context is cancelled via Stop.
//
// If StartWorkers is called more than once without Stop, it returns an error.
func (p *LocalPool) StartWorkers(ctx context.Context, concurrency int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("stride: LocalPool already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer p.wg.Done()

			for {
				processed, err := p.Worker.ProcessOne(ctx)
				if err != nil {
					// For a local pool we treat cancellation as a clean shutdown signal.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					// For other errors, log and keep going so a single bad job
					// doesn't kill the worker loop.
					log.Printf("stride: local pool worker error: %v", err)
					continue
				}
				if !processed {
					// Only happens if ctx was cancelled before a job was obtained.
					// Loop will exit on the next Dequeue when err == context.Canceled.
					continue
				}
			}
		}()
	}

	return nil
}

// Stop cancels all worker goroutines started by StartWorkers and waits
// for them to exit.
func (p *LocalPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// SubmitAsync enqueues an operation for asynchronous execution under the
// given retry policy. A nil policy means a single attempt.
func (p *LocalPool) SubmitAsync(ctx context.Context, name string, op Operation, policy *RetryPolicy) error {
	return p.Worker.Enqueue(ctx, name, op, policy)
}

package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jlammi/stride/internal/jobqueue"
	"github.com/jlammi/stride/pkg/api"
)

// Worker pulls jobs from a Queue and executes them using an Executor.
type Worker struct {
	executor api.Executor
	queue    jobqueue.Queue
	cfg      Config
}

// Config tunes how a Worker executes jobs.
type Config struct {
	// DefaultRetry is applied to jobs enqueued without their own policy.
	// Nil means a single attempt.
	DefaultRetry *api.RetryPolicy
}

// New creates a new Worker with default config.
func New(executor api.Executor, queue jobqueue.Queue) *Worker {
	return NewWithConfig(executor, queue, Config{})
}

// NewWithConfig creates a new Worker with the given config.
func NewWithConfig(executor api.Executor, queue jobqueue.Queue, cfg Config) *Worker {
	return &Worker{
		executor: executor,
		queue:    queue,
		cfg:      cfg,
	}
}

// Enqueue queues an operation for asynchronous execution.
// It does NOT run the operation itself; that is done by ProcessOne.
func (w *Worker) Enqueue(ctx context.Context, name string, op api.Operation, policy *api.RetryPolicy) error {
	if op == nil {
		return errors.New("operation is required")
	}
	j := jobqueue.Job{
		Name:       name,
		Op:         op,
		Retry:      policy,
		EnqueuedAt: time.Now(),
	}
	return w.queue.Enqueue(ctx, j)
}

// ProcessOne pulls a single job from the queue and executes it.
// Returns (processed, error):
//   - processed == false, err != nil: no job obtained (e.g. ctx cancelled).
//   - processed == true: a job was executed; err reflects its final outcome.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	j, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if j == nil {
		return false, nil
	}

	policy := j.Retry
	if policy == nil {
		policy = w.cfg.DefaultRetry
	}

	_, runErr := w.executor.Do(ctx, j.Name, j.Op, policy)
	return true, runErr
}

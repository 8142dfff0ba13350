package jobqueue

import (
	"context"
	"time"

	"github.com/jlammi/stride/pkg/api"
)

// Job is one submitted operation waiting to be executed.
//
// The operation is a live closure, which makes every queue implementation
// process-local by nature: a job cannot be serialized or handed to another
// process.
type Job struct {
	ID   string
	Name string

	// Op is the operation to execute.
	Op api.Operation

	// Retry overrides the worker's default policy when non-nil.
	Retry *api.RetryPolicy

	EnqueuedAt time.Time
}

// Queue hands jobs from submitters to workers.
type Queue interface {
	// Enqueue submits a job, blocking while the queue is full until there
	// is room or ctx is cancelled.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue blocks until a job is available or ctx is cancelled.
	Dequeue(ctx context.Context) (*Job, error)
}

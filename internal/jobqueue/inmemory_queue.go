package jobqueue

import (
	"context"
)

// DefaultCapacity is the queue depth used when no explicit capacity is
// requested.
const DefaultCapacity = 1024

// InMemoryQueue is a channel-backed Queue. Enqueue applies backpressure
// once the channel is full rather than growing without bound.
type InMemoryQueue struct {
	jobs chan Job
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a queue holding up to capacity pending jobs.
// capacity <= 0 selects DefaultCapacity.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryQueue{
		jobs: make(chan Job, capacity),
	}
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	// Check cancellation up front so an already-dead ctx never submits,
	// even when the channel has room.
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case j := <-q.jobs:
		return &j, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of jobs currently buffered. It is a point-in-time
// figure, useful for tests and diagnostics only.
func (q *InMemoryQueue) Len() int {
	return len(q.jobs)
}

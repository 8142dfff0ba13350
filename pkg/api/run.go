package api

import (
	"context"
	"time"
)

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Kind distinguishes single retried operations from batches.
type Kind string

const (
	KindRetry Kind = "RETRY"
	KindBatch Kind = "BATCH"
)

// Run holds the record of one execution.
type Run struct {
	ID     string
	Name   string
	Kind   Kind
	Status Status

	// Output is the success value of a retry run. Unset for batch runs;
	// batch outcomes live in Results.
	Output any

	// Err is the error that failed the run, if any.
	Err error

	// Results holds the per-operation outcomes of a batch run, in the same
	// order the operations were submitted. Nil for retry runs.
	Results []Result

	// Attempts counts invocations of a retry run's operation. For batch
	// runs, per-operation counts live in Results.
	Attempts int

	StartedAt  time.Time
	FinishedAt time.Time
}

// RunListOptions controls how runs are listed.
// Zero values mean "no filter" for that field.
type RunListOptions struct {
	// Name, if non-empty, limits results to runs with the given name.
	Name string

	// Kind, if non-empty, limits results to runs of the given kind.
	Kind Kind

	// Status, if non-empty, limits results to runs with the given status.
	Status Status
}

// Executor is the high-level execution API.
type Executor interface {
	// Do invokes op under the given retry policy, blocking until the
	// operation succeeds or the attempt budget is exhausted. A nil policy
	// means a single attempt.
	//
	// The run record is returned in both cases; on failure the error from
	// the final attempt is returned as-is alongside it.
	Do(ctx context.Context, name string, op Operation, policy *RetryPolicy) (*Run, error)

	// DoBatch invokes every operation in ops with at most
	// opts.Concurrency in flight at once, blocking until all have
	// settled. The run's Results line up index-for-index with ops.
	DoBatch(ctx context.Context, name string, ops []Operation, opts BatchOptions) (*Run, error)

	// GetRun looks up a run by ID.
	// Returns an error if the run is not found.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs matching the given options.
	// If options are zero-valued, all runs are returned.
	ListRuns(ctx context.Context, opts RunListOptions) ([]*Run, error)
}

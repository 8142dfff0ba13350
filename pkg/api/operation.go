package api

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults applied by the fluent builders in the root package.
const (
	DefaultMaxAttempts    = 4
	DefaultInitialBackoff = time.Second
	DefaultConcurrency    = 5
)

// Operation is a single unit of asynchronous work.
// Iteration 1: keep it simple with `any`; Typed adds type safety on top.
//
// Operations must honor ctx: a cancelled context should make the operation
// return promptly with ctx.Err() (or a wrapping error).
type Operation func(ctx context.Context) (any, error)

// Typed wraps a strongly-typed function into an Operation.
//
// The success value is stored as-is in the run record, so callers that know
// the type can assert it back out of Run.Output or Result.Value.
func Typed[T any](fn func(ctx context.Context) (T, error)) Operation {
	return func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Result is the per-operation outcome of a batch run. Exactly one of Value
// and Err is meaningful; Attempts counts how many times the operation was
// invoked (0 if it never started, e.g. after cancellation).
type Result struct {
	Value    any
	Err      error
	Attempts int
}

// Ok reports whether the operation produced a value.
func (r Result) Ok() bool {
	return r.Err == nil
}

// RetryPolicy controls how an operation is retried when it returns an error.
// MaxAttempts includes the first attempt. For example:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 4 => initial call + up to 3 retries
//
// InitialBackoff is the delay before the first retry; each subsequent delay
// is multiplied by BackoffMultiplier (2.0 if zero). MaxBackoff caps the
// delay; if <= 0 the delay grows without bound. If InitialBackoff is zero,
// retries happen immediately.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryPolicy returns the stock policy: DefaultMaxAttempts attempts
// with exponential backoff starting at DefaultInitialBackoff, factor 2,
// uncapped.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       DefaultMaxAttempts,
		InitialBackoff:    DefaultInitialBackoff,
		BackoffMultiplier: 2.0,
	}
}

// BatchOptions controls how Executor.DoBatch runs a set of operations.
type BatchOptions struct {
	// Concurrency bounds the number of operations in flight at once.
	// DoBatch rejects values <= 0 with ErrInvalidConcurrency.
	Concurrency int

	// Retry, if non-nil, is applied to every operation in the batch
	// independently. Nil means a single attempt per operation.
	Retry *RetryPolicy

	// FailFast stops submitting new operations after the first failure and
	// surfaces that failure from DoBatch. When false (the default), every
	// operation runs to completion and failures stay in their result slots.
	FailFast bool
}

// ErrInvalidConcurrency is returned by DoBatch when BatchOptions.Concurrency
// is not positive.
var ErrInvalidConcurrency = errors.New("batch concurrency must be positive")

// Validate checks the options for obvious misconfiguration.
func (o BatchOptions) Validate() error {
	if o.Concurrency <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, o.Concurrency)
	}
	return nil
}

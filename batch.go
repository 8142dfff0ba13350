package stride

import "github.com/jlammi/stride/pkg/api"

// BatchBuilder provides a fluent way to construct BatchOptions for
// Executor.DoBatch:
//
//	opts := stride.Batch().
//	    WithConcurrency(8).
//	    WithRetry(stride.Retry(3).WithConstantBackoff(50 * time.Millisecond).Policy()).
//	    Options()
type BatchBuilder struct {
	opts BatchOptions
}

// Batch creates a BatchBuilder with the default concurrency limit.
func Batch() BatchBuilder {
	return BatchBuilder{
		opts: BatchOptions{
			Concurrency: api.DefaultConcurrency,
		},
	}
}

// WithConcurrency sets the bound on simultaneous in-flight operations.
// The value is stored as given; DoBatch rejects non-positive limits with
// ErrInvalidConcurrency rather than silently running unbounded.
func (b BatchBuilder) WithConcurrency(n int) BatchBuilder {
	o := b.opts
	o.Concurrency = n
	return BatchBuilder{opts: o}
}

// WithRetry applies the given policy to every operation in the batch.
func (b BatchBuilder) WithRetry(policy RetryPolicy) BatchBuilder {
	o := b.opts
	// Copy so callers can mutate their policy after the call.
	p := policy
	o.Retry = &p
	return BatchBuilder{opts: o}
}

// FailFast makes the batch stop submitting new operations after the first
// failure and surface that failure from DoBatch. Without it, every
// operation runs to completion and failures stay in their result slots.
func (b BatchBuilder) FailFast() BatchBuilder {
	o := b.opts
	o.FailFast = true
	return BatchBuilder{opts: o}
}

// Options returns the underlying BatchOptions.
func (b BatchBuilder) Options() BatchOptions {
	return b.opts
}

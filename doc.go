// Package stride is a small, embeddable async execution core for Go.
//
// Stride does two things well: it re-invokes a failing operation with
// exponential backoff until it succeeds or an attempt budget runs out, and
// it runs an ordered list of operations with a hard bound on how many are in
// flight at once, reporting every outcome at its original index. Both paths
// record their runs so outcomes can be inspected after the fact.
//
// # Core Concepts
//
// The programming model is intentionally small and idiomatic:
//
//  1. Operation
//  2. Executor
//  3. RetryBuilder / BatchBuilder
//  4. LocalPool
//
// # Operation
//
// An Operation is the fundamental executable unit:
//
//	type Operation func(ctx context.Context) (any, error)
//
// Operations should respect ctx; the executor checks it before every attempt
// and during every backoff wait, so a cancelled caller stops the loop at the
// next suspension point. Typed wraps a strongly-typed function into an
// Operation without manual boxing.
//
// # Executor
//
// The Executor runs operations and records each execution as a Run:
//
//   - Do runs one operation under a RetryPolicy. On success it returns the
//     value; on exhaustion it returns the final attempt's error unwrapped,
//     so callers see the original cause.
//   - DoBatch runs a slice of operations with at most Concurrency in flight.
//     Operations start in input order the moment a slot frees up, and each
//     outcome lands at its input index regardless of completion order. By
//     default every operation runs to completion and failures stay isolated
//     in their own Result slot; FailFast stops submission at the first
//     failure instead.
//
// Run history can be kept in memory (best for tests), SQLite, PostgreSQL,
// or Redis.
//
// # RetryBuilder / BatchBuilder
//
// Fluent builders construct the policy and option values:
//
//	policy := stride.Retry(4).
//	    WithExponentialBackoff(100*time.Millisecond, 2.0, 0).
//	    Policy()
//
//	opts := stride.Batch().WithConcurrency(5).Options()
//
// Backoff grows without bound unless WithCap (or the max argument of
// WithExponentialBackoff) is used.
//
// # LocalPool
//
// LocalPool bundles an executor, an in-memory job queue, and a set of worker
// goroutines for continuous submission of independent operations. It is
// process-local by design: operations are closures and are never serialized.
//
// # Observability
//
// An Observer receives run and attempt lifecycle callbacks. The package
// ships a slog-based LoggingObserver, an atomic-counter BasicMetrics, and a
// CompositeObserver to combine them. The executor itself never logs.
package stride

package stride

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/jlammi/stride/internal/exec"
	"github.com/jlammi/stride/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Executor             = api.Executor
	Operation            = api.Operation
	Result               = api.Result
	Run                  = api.Run
	RunListOptions       = api.RunListOptions
	Status               = api.Status
	Kind                 = api.Kind
	RetryPolicy          = api.RetryPolicy
	BatchOptions         = api.BatchOptions
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status and kind values for convenience.

const (
	StatusPending   = api.StatusPending
	StatusRunning   = api.StatusRunning
	StatusCompleted = api.StatusCompleted
	StatusFailed    = api.StatusFailed

	KindRetry = api.KindRetry
	KindBatch = api.KindBatch
)

// ErrInvalidConcurrency is returned by DoBatch for a non-positive
// concurrency limit.
var ErrInvalidConcurrency = api.ErrInvalidConcurrency

// DefaultRetryPolicy returns the stock policy: four attempts total with
// exponential backoff starting at one second, factor 2, uncapped.
var DefaultRetryPolicy = api.DefaultRetryPolicy

// Typed wraps a strongly-typed function into an Operation.
// Example:
//
//	stride.Typed(func(ctx context.Context) (User, error) { ... })
func Typed[T any](fn func(ctx context.Context) (T, error)) Operation {
	return api.Typed(fn)
}

// Executor constructors
// These wrap the internal/exec package so external callers
// never need to import internal packages.

// NewInMemoryExecutor returns an Executor that keeps run history in memory.
func NewInMemoryExecutor() Executor {
	return exec.NewInMemoryExecutor()
}

// NewInMemoryExecutorWithObserver returns an in-memory Executor with the given Observer.
func NewInMemoryExecutorWithObserver(obs Observer) Executor {
	return exec.NewInMemoryExecutorWithObserver(obs)
}

// NewSQLiteExecutor returns an Executor that persists run history
// in a SQLite database.
func NewSQLiteExecutor(db *sql.DB) (Executor, error) {
	return exec.NewSQLiteExecutor(db)
}

// NewSQLiteExecutorWithObserver returns a SQLite-backed Executor with the given Observer.
func NewSQLiteExecutorWithObserver(db *sql.DB, obs Observer) (Executor, error) {
	return exec.NewSQLiteExecutorWithObserver(db, obs)
}

// NewPostgresExecutor returns an Executor that persists run history in PostgreSQL.
func NewPostgresExecutor(db *sql.DB) (Executor, error) {
	return exec.NewPostgresExecutor(db)
}

// NewPostgresExecutorWithObserver returns a Postgres-backed Executor with the given Observer.
func NewPostgresExecutorWithObserver(db *sql.DB, obs Observer) (Executor, error) {
	return exec.NewPostgresExecutorWithObserver(db, obs)
}

// NewRedisExecutor returns an Executor that persists run history in Redis.
func NewRedisExecutor(client *redis.Client) Executor {
	return exec.NewRedisExecutor(client)
}

// NewRedisExecutorWithObserver returns a Redis-backed Executor with the given Observer.
func NewRedisExecutorWithObserver(client *redis.Client, obs Observer) Executor {
	return exec.NewRedisExecutorWithObserver(client, obs)
}

// Convenience helpers that just forward to the underlying Executor.

// Do runs a single operation under the given retry policy.
func Do(ctx context.Context, e Executor, name string, op Operation, policy *RetryPolicy) (*Run, error) {
	return e.Do(ctx, name, op, policy)
}

// DoBatch runs operations with bounded concurrency.
func DoBatch(ctx context.Context, e Executor, name string, ops []Operation, opts BatchOptions) (*Run, error) {
	return e.DoBatch(ctx, name, ops, opts)
}

// GetRun fetches a run by ID.
func GetRun(ctx context.Context, e Executor, id string) (*Run, error) {
	return e.GetRun(ctx, id)
}

// ListRuns lists runs according to the given options.
func ListRuns(ctx context.Context, e Executor, opts RunListOptions) ([]*Run, error) {
	return e.ListRuns(ctx, opts)
}

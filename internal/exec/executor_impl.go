package exec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jlammi/stride/internal/history"
	"github.com/jlammi/stride/pkg/api"
)

// executorImpl is a synchronous, in-process executor implementation.
type executorImpl struct {
	runs history.RunStore

	mu       sync.Mutex // only for nextID
	nextID   int64
	observer api.Observer
}

// Config describes how to construct an executorImpl.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Store    history.RunStore
	Observer api.Observer
}

func NewInMemoryExecutor() api.Executor {
	return NewExecutor(history.NewInMemoryStore())
}

func NewInMemoryExecutorWithObserver(obs api.Observer) api.Executor {
	return NewExecutorWithConfig(Config{
		Store:    history.NewInMemoryStore(),
		Observer: obs,
	})
}

func NewSQLiteExecutor(db *sql.DB) (api.Executor, error) {
	return NewSQLiteExecutorWithObserver(db, nil)
}

func NewSQLiteExecutorWithObserver(db *sql.DB, obs api.Observer) (api.Executor, error) {
	store, err := history.NewSQLiteRunStore(db)
	if err != nil {
		return nil, err
	}
	return NewExecutorWithConfig(Config{
		Store:    store,
		Observer: obs,
	}), nil
}

func NewPostgresExecutor(db *sql.DB) (api.Executor, error) {
	return NewPostgresExecutorWithObserver(db, nil)
}

func NewPostgresExecutorWithObserver(db *sql.DB, obs api.Observer) (api.Executor, error) {
	store, err := history.NewPostgresRunStore(db)
	if err != nil {
		return nil, err
	}
	return NewExecutorWithConfig(Config{
		Store:    store,
		Observer: obs,
	}), nil
}

// NewRedisExecutor creates an executor that uses Redis for run history.
func NewRedisExecutor(client *redis.Client) api.Executor {
	return NewRedisExecutorWithObserver(client, nil)
}

func NewRedisExecutorWithObserver(client *redis.Client, obs api.Observer) api.Executor {
	return NewExecutorWithConfig(Config{
		Store:    history.NewRedisRunStore(client, "stride:"),
		Observer: obs,
	})
}

// NewExecutorWithConfig creates a new Executor using the given configuration.
func NewExecutorWithConfig(cfg Config) api.Executor {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &executorImpl{
		runs:     cfg.Store,
		observer: obs,
	}
}

// NewExecutor returns an Executor backed by the given run store.
// External users access this via stride.NewInMemoryExecutor and friends.
func NewExecutor(store history.RunStore) api.Executor {
	return NewExecutorWithConfig(Config{
		Store: store,
	})
}

func (e *executorImpl) Do(ctx context.Context, name string, op api.Operation, policy *api.RetryPolicy) (*api.Run, error) {
	if op == nil {
		return nil, errors.New("operation is required")
	}

	run := &api.Run{
		ID:        e.nextRunID(),
		Name:      name,
		Kind:      api.KindRetry,
		Status:    api.StatusRunning,
		StartedAt: time.Now(),
	}

	e.observer.OnRunStart(ctx, run)

	// Persist the run as soon as it starts.
	if err := e.runs.SaveRun(run); err != nil {
		return e.failRun(ctx, run, err)
	}

	value, attempts, err := e.attempt(ctx, run, 0, op, policy)
	run.Attempts = attempts
	run.FinishedAt = time.Now()

	if err != nil {
		return e.failRun(ctx, run, err)
	}

	run.Status = api.StatusCompleted
	run.Output = value
	_ = e.runs.UpdateRun(run)
	e.observer.OnRunCompleted(ctx, run)

	return run, nil
}

func (e *executorImpl) DoBatch(ctx context.Context, name string, ops []api.Operation, opts api.BatchOptions) (*api.Run, error) {
	// Reject a bad limit before anything is invoked.
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	run := &api.Run{
		ID:        e.nextRunID(),
		Name:      name,
		Kind:      api.KindBatch,
		Status:    api.StatusRunning,
		Results:   make([]api.Result, len(ops)),
		StartedAt: time.Now(),
	}

	e.observer.OnRunStart(ctx, run)

	if err := e.runs.SaveRun(run); err != nil {
		return e.failRun(ctx, run, err)
	}

	if len(ops) == 0 {
		run.Status = api.StatusCompleted
		run.FinishedAt = time.Now()
		_ = e.runs.UpdateRun(run)
		e.observer.OnRunCompleted(ctx, run)
		return run, nil
	}

	batchCtx := ctx
	cancel := context.CancelFunc(func() {})
	if opts.FailFast {
		batchCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type job struct {
		index int
		op    api.Operation
	}

	jobs := make(chan job)

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		firstErr error
	)

	// Each worker owns one concurrency slot, so at most opts.Concurrency
	// operations are ever in flight; a slot frees the moment its current
	// operation settles.
	workers := opts.Concurrency
	if workers > len(ops) {
		workers = len(ops)
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				value, attempts, err := e.attempt(batchCtx, run, j.index, j.op, opts.Retry)

				// Each index is written by exactly one worker, and the
				// slice is only read after wg.Wait.
				run.Results[j.index] = api.Result{
					Value:    value,
					Err:      err,
					Attempts: attempts,
				}

				if err != nil && opts.FailFast {
					failOnce.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

	// Feed operations in input order; submission blocks while every slot
	// is busy and resumes as soon as one settles.
submit:
	for i, op := range ops {
		select {
		case <-batchCtx.Done():
			break submit
		case jobs <- job{index: i, op: op}:
		}
	}
	close(jobs)
	wg.Wait()

	// Slots that never started record why.
	if cErr := batchCtx.Err(); cErr != nil {
		for i := range run.Results {
			if run.Results[i].Attempts == 0 && run.Results[i].Err == nil {
				run.Results[i].Err = cErr
			}
		}
	}

	run.FinishedAt = time.Now()

	var runErr error
	switch {
	case opts.FailFast && firstErr != nil:
		runErr = firstErr
	case ctx.Err() != nil:
		runErr = ctx.Err()
	}

	if runErr != nil {
		return e.failRun(ctx, run, runErr)
	}

	run.Status = api.StatusCompleted
	_ = e.runs.UpdateRun(run)
	e.observer.OnRunCompleted(ctx, run)

	return run, nil
}

func (e *executorImpl) GetRun(ctx context.Context, id string) (*api.Run, error) {
	run, err := e.runs.GetRun(id)
	if err != nil {
		if errors.Is(err, history.ErrRunNotFound) {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, err
	}
	return run, nil
}

func (e *executorImpl) ListRuns(ctx context.Context, opts api.RunListOptions) ([]*api.Run, error) {
	filter := history.RunFilter{
		Name:   opts.Name,
		Kind:   opts.Kind,
		Status: opts.Status,
	}
	return e.runs.ListRuns(filter)
}

func (e *executorImpl) nextRunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	return fmt.Sprintf("run-%d", e.nextID)
}

// failRun marks the run failed, persists it, and notifies the observer.
// The triggering error is returned as-is.
func (e *executorImpl) failRun(ctx context.Context, run *api.Run, err error) (*api.Run, error) {
	run.Status = api.StatusFailed
	run.Err = err
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	_ = e.runs.UpdateRun(run)
	e.observer.OnRunFailed(ctx, run, err)
	return run, err
}

// attempt invokes op under policy until it succeeds or the attempt budget is
// exhausted. It returns the success value, the number of invocations made,
// and the error from the final attempt. The final error is surfaced as-is:
// callers cannot tell "failed once" from "failed after retries" by looking
// at the error alone; the attempt count carries that information.
//
// Attempts run strictly sequentially. The context is checked before every
// attempt and during every backoff wait, so a cancelled caller abandons the
// loop at the next suspension point.
func (e *executorImpl) attempt(
	ctx context.Context,
	run *api.Run,
	index int,
	op api.Operation,
	policy *api.RetryPolicy,
) (any, int, error) {
	maxAttempts := 1
	var (
		backoff    time.Duration // current backoff value
		maxBackoff time.Duration
		multiplier float64
	)

	if policy != nil {
		if policy.MaxAttempts > 0 {
			maxAttempts = policy.MaxAttempts
		}
		backoff = policy.InitialBackoff
		maxBackoff = policy.MaxBackoff

		// Backoff multiplier:
		//   - If explicitly set to > 0, use it.
		//   - Otherwise default to 2.0 (standard exponential backoff).
		multiplier = policy.BackoffMultiplier
		if multiplier <= 0 {
			multiplier = 2.0
		}
	}

	attempts := 0
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, attempts, ctx.Err()
		default:
		}

		attempts++
		startTime := time.Now()
		e.observer.OnAttemptStart(ctx, run, index, attempt)

		value, err := op(ctx)

		duration := time.Since(startTime)
		e.observer.OnAttemptCompleted(ctx, run, index, attempt, err, duration)

		if err == nil {
			return value, attempts, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			return nil, attempts, lastErr
		}

		// Wait before the next attempt, if backoff is configured.
		if backoff > 0 {
			// Apply per-attempt delay with optional cap. No cap means the
			// delay grows without bound; that is intended behavior.
			delay := backoff
			if maxBackoff > 0 && delay > maxBackoff {
				delay = maxBackoff
			}

			select {
			case <-ctx.Done():
				return nil, attempts, ctx.Err()
			case <-time.After(delay):
				// continue to next attempt
			}

			// Increase backoff for the next retry.
			nextBackoff := time.Duration(float64(backoff) * multiplier)
			if maxBackoff > 0 && nextBackoff > maxBackoff {
				backoff = maxBackoff
			} else {
				backoff = nextBackoff
			}
		}
	}

	return nil, attempts, lastErr
}

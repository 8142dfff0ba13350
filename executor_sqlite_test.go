package stride

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// Exercises the SQLite-backed executor against a real database file,
// including reopening the file to verify durability.
func TestSQLiteExecutor_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "stride.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)

	e, err := NewSQLiteExecutor(db)
	require.NoError(t, err)

	// A retried operation that eventually succeeds.
	calls := 0
	flaky := func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return "recovered", nil
	}

	policy := Retry(4).WithConstantBackoff(5 * time.Millisecond).Policy()
	retryRun, err := e.Do(ctx, "flaky-sync", flaky, &policy)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, retryRun.Status)
	require.Equal(t, 3, retryRun.Attempts)
	require.Equal(t, "recovered", retryRun.Output)

	// A batch with one failing slot.
	ops := []Operation{
		func(ctx context.Context) (any, error) { return "a", nil },
		func(ctx context.Context) (any, error) { return nil, errors.New("b failed") },
		func(ctx context.Context) (any, error) { return "c", nil },
	}
	batchRun, err := e.DoBatch(ctx, "import", ops, Batch().WithConcurrency(2).Options())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, batchRun.Status)
	require.Len(t, batchRun.Results, 3)

	// Close and reopen the database; history must survive.
	require.NoError(t, db.Close())

	db2, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db2.Close()

	e2, err := NewSQLiteExecutor(db2)
	require.NoError(t, err)

	got, err := e2.GetRun(ctx, retryRun.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Equal(t, "recovered", got.Output)
	require.Equal(t, 3, got.Attempts)

	gotBatch, err := e2.GetRun(ctx, batchRun.ID)
	require.NoError(t, err)
	require.Len(t, gotBatch.Results, 3)
	require.Equal(t, "a", gotBatch.Results[0].Value)
	require.Error(t, gotBatch.Results[1].Err)
	require.EqualError(t, gotBatch.Results[1].Err, "b failed")
	require.Equal(t, "c", gotBatch.Results[2].Value)

	batches, err := e2.ListRuns(ctx, RunListOptions{Kind: KindBatch})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, "import", batches[0].Name)
}

func TestSQLiteExecutor_ObserverMetrics(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	metrics := &BasicMetrics{}
	e, err := NewSQLiteExecutorWithObserver(db, metrics)
	require.NoError(t, err)

	_, err = e.Do(ctx, "ok", func(ctx context.Context) (any, error) { return 1, nil }, nil)
	require.NoError(t, err)

	_, err = e.Do(ctx, "bad", func(ctx context.Context) (any, error) { return nil, errors.New("boom") }, nil)
	require.Error(t, err)

	snap := metrics.Snapshot()
	require.EqualValues(t, 2, snap.RunsStarted)
	require.EqualValues(t, 1, snap.RunsCompleted)
	require.EqualValues(t, 1, snap.RunsFailed)
	require.EqualValues(t, 0, snap.PendingRuns)
	require.EqualValues(t, 1, snap.AttemptsCompleted)
	require.EqualValues(t, 1, snap.AttemptsFailed)
}

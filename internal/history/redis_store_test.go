package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jlammi/stride/pkg/api"
)

// newRedisStore connects to the Redis instance named by STRIDE_REDIS_ADDR
// (e.g. "localhost:6379") and skips the test when it is unset. Each test
// gets its own key prefix so runs do not collide.
func newRedisStore(t *testing.T) *RedisRunStore {
	t.Helper()

	addr := os.Getenv("STRIDE_REDIS_ADDR")
	if addr == "" {
		t.Skip("STRIDE_REDIS_ADDR not set; skipping Redis store tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}

	prefix := fmt.Sprintf("stride-test:%s:%d:", t.Name(), time.Now().UnixNano())
	store := NewRedisRunStore(client, prefix)

	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			_ = client.Del(ctx, iter.Val()).Err()
		}
	})

	return store
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := newRedisStore(t)

	started := time.Now().Truncate(time.Millisecond)
	run := &api.Run{
		ID:       "run-1",
		Name:     "export",
		Kind:     api.KindBatch,
		Status:   api.StatusCompleted,
		Attempts: 1,
		Output:   "done",
		Results: []api.Result{
			{Value: "a", Attempts: 1},
			{Err: errors.New("b failed"), Attempts: 2},
		},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Name != "export" || got.Kind != api.KindBatch || got.Output != "done" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if len(got.Results) != 2 || got.Results[1].Err == nil || got.Results[1].Err.Error() != "b failed" {
		t.Fatalf("unexpected results: %+v", got.Results)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("StartedAt did not survive: %v", got.StartedAt)
	}
}

func TestRedisStore_GetMissing(t *testing.T) {
	store := newRedisStore(t)

	if _, err := store.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRedisStore_ListFilters(t *testing.T) {
	store := newRedisStore(t)

	now := time.Now()
	runs := []*api.Run{
		{ID: "run-1", Name: "sync", Kind: api.KindRetry, Status: api.StatusCompleted, StartedAt: now},
		{ID: "run-2", Name: "sync", Kind: api.KindRetry, Status: api.StatusFailed, StartedAt: now},
		{ID: "run-3", Name: "import", Kind: api.KindBatch, Status: api.StatusCompleted, StartedAt: now},
	}
	for _, r := range runs {
		if err := store.SaveRun(r); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	all, err := store.ListRuns(RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}

	byName, err := store.ListRuns(RunFilter{Name: "sync"})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(byName) != 2 {
		t.Fatalf("expected 2 runs named sync, got %d", len(byName))
	}
}

func TestRedisStore_UpdateOverStaleStatusIndex(t *testing.T) {
	store := newRedisStore(t)

	run := &api.Run{
		ID:        "run-1",
		Name:      "job",
		Kind:      api.KindRetry,
		Status:    api.StatusRunning,
		StartedAt: time.Now(),
	}
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	run.Status = api.StatusCompleted
	run.Output = "ok"
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	// The old status index still remembers run-1; the payload re-check
	// must filter it out.
	running, err := store.ListRuns(RunFilter{Status: api.StatusRunning})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(running) != 0 {
		t.Fatalf("stale index leaked into results: %+v", running)
	}

	completed, err := store.ListRuns(RunFilter{Status: api.StatusCompleted})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(completed) != 1 || completed[0].Output != "ok" {
		t.Fatalf("unexpected completed runs: %+v", completed)
	}
}

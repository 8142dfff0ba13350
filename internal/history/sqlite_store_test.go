package history

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jlammi/stride/pkg/api"
)

func newSQLiteStore(t *testing.T) *SQLiteRunStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteRunStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore failed: %v", err)
	}
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := newSQLiteStore(t)

	started := time.Now().Truncate(time.Millisecond)
	run := &api.Run{
		ID:        "run-1",
		Name:      "import",
		Kind:      api.KindBatch,
		Status:    api.StatusCompleted,
		Attempts:  2,
		Output:    "done",
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
	if got.Name != "import" || got.Kind != api.KindBatch || got.Status != api.StatusCompleted {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.Attempts != 2 || got.Output != "done" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(started.Add(time.Second)) {
		t.Fatalf("timestamps did not survive: started=%v finished=%v", got.StartedAt, got.FinishedAt)
	}
	if len(got.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got.Results))
	}
	if got.Results[0].Value != "a" {
		t.Fatalf("unexpected result 0: %+v", got.Results[0])
	}
	if got.Results[1].Err == nil || got.Results[1].Err.Error() != "b failed" {
		t.Fatalf("unexpected result 1: %+v", got.Results[1])
	}
}

func TestSQLiteStore_InFlightRunHasNoFinishedAt(t *testing.T) {
	store := newSQLiteStore(t)

	run := &api.Run{
		ID:        "run-1",
		Name:      "pending",
		Kind:      api.KindRetry,
		Status:    api.StatusRunning,
		StartedAt: time.Now(),
	}
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if !got.FinishedAt.IsZero() {
		t.Fatalf("expected zero FinishedAt, got %v", got.FinishedAt)
	}
}

func TestSQLiteStore_Update(t *testing.T) {
	store := newSQLiteStore(t)

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

	run.Status = api.StatusFailed
	run.Err = errors.New("gave up")
	run.Attempts = 3
	run.FinishedAt = time.Now()
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != api.StatusFailed || got.Attempts != 3 {
		t.Fatalf("update not visible: %+v", got)
	}
	if got.Err == nil || got.Err.Error() != "gave up" {
		t.Fatalf("error not stored: %v", got.Err)
	}
}

func TestSQLiteStore_UpdateMissing(t *testing.T) {
	store := newSQLiteStore(t)

	err := store.UpdateRun(&api.Run{ID: "ghost", StartedAt: time.Now()})
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newSQLiteStore(t)

	if _, err := store.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListFilters(t *testing.T) {
	store := newSQLiteStore(t)

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

	failed, err := store.ListRuns(RunFilter{Status: api.StatusFailed})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "run-2" {
		t.Fatalf("unexpected failed runs: %+v", failed)
	}

	combined, err := store.ListRuns(RunFilter{Name: "sync", Kind: api.KindRetry, Status: api.StatusCompleted})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(combined) != 1 || combined[0].ID != "run-1" {
		t.Fatalf("unexpected filtered runs: %+v", combined)
	}
}

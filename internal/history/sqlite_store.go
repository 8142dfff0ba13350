package history

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jlammi/stride/pkg/api"
)

// SQLiteRunStore is a RunStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteRunStore struct {
	db *sql.DB
}

// Ensure SQLiteRunStore implements RunStore.
var _ RunStore = (*SQLiteRunStore)(nil)

// NewSQLiteRunStore initializes the required schema in the given
// database and returns a new SQLiteRunStore.
func NewSQLiteRunStore(db *sql.DB) (*SQLiteRunStore, error) {
	s := &SQLiteRunStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRunStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			output BLOB,
			results BLOB,
			error TEXT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteRunStore) SaveRun(run *api.Run) error {
	output, results, errStr, err := encodeRunColumns(run)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, name, kind, status, attempts, output, results, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Name,
		string(run.Kind),
		string(run.Status),
		run.Attempts,
		output,
		results,
		errStr,
		run.StartedAt.UnixNano(),
		finishedNanos(run),
	)
	return err
}

func (s *SQLiteRunStore) UpdateRun(run *api.Run) error {
	output, results, errStr, err := encodeRunColumns(run)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE runs
		SET name = ?, kind = ?, status = ?, attempts = ?, output = ?, results = ?, error = ?, started_at = ?, finished_at = ?
		WHERE id = ?`,
		run.Name,
		string(run.Kind),
		string(run.Status),
		run.Attempts,
		output,
		results,
		errStr,
		run.StartedAt.UnixNano(),
		finishedNanos(run),
		run.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (s *SQLiteRunStore) GetRun(id string) (*api.Run, error) {
	row := s.db.QueryRow(`
		SELECT id, name, kind, status, attempts, output, results, error, started_at, finished_at
		FROM runs
		WHERE id = ?`,
		id,
	)

	run, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (s *SQLiteRunStore) ListRuns(filter RunFilter) ([]*api.Run, error) {
	query := `
		SELECT id, name, kind, status, attempts, output, results, error, started_at, finished_at
		FROM runs`
	var args []any
	var clauses []string

	if filter.Name != "" {
		clauses = append(clauses, "name = ?")
		args = append(args, filter.Name)
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*api.Run

	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// encodeRunColumns converts the run's variable-shaped fields into the
// column values shared by the SQL stores.
func encodeRunColumns(run *api.Run) (output, results []byte, errStr string, err error) {
	output, err = encodeValue(run.Output)
	if err != nil {
		return nil, nil, "", err
	}

	results, err = encodeResults(run.Results)
	if err != nil {
		return nil, nil, "", err
	}

	if run.Err != nil {
		errStr = run.Err.Error()
	}
	return output, results, errStr, nil
}

// finishedNanos maps the zero FinishedAt of an in-flight run to 0.
func finishedNanos(run *api.Run) int64 {
	if run.FinishedAt.IsZero() {
		return 0
	}
	return run.FinishedAt.UnixNano()
}

// scanRun reads one row produced by the run SELECTs above.
func scanRun(scan func(dest ...any) error) (*api.Run, error) {
	var run api.Run
	var kindStr, statusStr string
	var output, results []byte
	var errStr sql.NullString
	var startedNs, finishedNs int64

	if err := scan(&run.ID, &run.Name, &kindStr, &statusStr, &run.Attempts,
		&output, &results, &errStr, &startedNs, &finishedNs); err != nil {
		return nil, err
	}

	run.Kind = api.Kind(kindStr)
	run.Status = api.Status(statusStr)
	run.StartedAt = time.Unix(0, startedNs)
	if finishedNs != 0 {
		run.FinishedAt = time.Unix(0, finishedNs)
	}

	outVal, err := decodeValue(output)
	if err != nil {
		return nil, err
	}
	run.Output = outVal

	resultsVal, err := decodeResults(results)
	if err != nil {
		return nil, err
	}
	run.Results = resultsVal

	if errStr.Valid && errStr.String != "" {
		run.Err = errors.New(errStr.String)
	}

	return &run, nil
}

package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jlammi/stride/pkg/api"
)

// PostgresRunStore is a RunStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresRunStore struct {
	db *sql.DB
}

// Ensure PostgresRunStore implements RunStore.
var _ RunStore = (*PostgresRunStore)(nil)

// NewPostgresRunStore initializes the required schema in the given
// database and returns a new PostgresRunStore.
func NewPostgresRunStore(db *sql.DB) (*PostgresRunStore, error) {
	s := &PostgresRunStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresRunStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			output BYTEA,
			results BYTEA,
			error TEXT,
			started_at BIGINT NOT NULL,
			finished_at BIGINT NOT NULL
		);
	`)
	return err
}

func (s *PostgresRunStore) SaveRun(run *api.Run) error {
	output, results, errStr, err := encodeRunColumns(run)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, name, kind, status, attempts, output, results, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
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

func (s *PostgresRunStore) UpdateRun(run *api.Run) error {
	output, results, errStr, err := encodeRunColumns(run)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE runs
		SET name = $1, kind = $2, status = $3, attempts = $4, output = $5, results = $6, error = $7, started_at = $8, finished_at = $9
		WHERE id = $10
	`,
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

func (s *PostgresRunStore) GetRun(id string) (*api.Run, error) {
	row := s.db.QueryRow(`
		SELECT id, name, kind, status, attempts, output, results, error, started_at, finished_at
		FROM runs
		WHERE id = $1
	`, id)

	run, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (s *PostgresRunStore) ListRuns(filter RunFilter) ([]*api.Run, error) {
	query := `
		SELECT id, name, kind, status, attempts, output, results, error, started_at, finished_at
		FROM runs`
	var args []any
	var clauses []string

	if filter.Name != "" {
		args = append(args, filter.Name)
		clauses = append(clauses, fmt.Sprintf("name = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		clauses = append(clauses, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
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

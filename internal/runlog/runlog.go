// Package runlog records pipeline run status per state in a local SQLite
// database, so interrupted runs can be inspected and resumed selectively.
package runlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Status values for a state run.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// StateRun is one state's processing record within a pipeline run.
type StateRun struct {
	ID         string
	RunID      string
	StateFIPS  string
	StateAbbr  string
	Status     string
	Blocks     int
	Records    int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Log stores run records using modernc.org/sqlite.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the run log at the given path and
// configures WAL mode.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}
	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS state_runs (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	state_fips  TEXT NOT NULL,
	state_abbr  TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	blocks      INTEGER NOT NULL DEFAULT 0,
	records     INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_state_runs_run_id ON state_runs(run_id);
CREATE INDEX IF NOT EXISTS idx_state_runs_state_fips ON state_runs(state_fips);
CREATE INDEX IF NOT EXISTS idx_state_runs_status ON state_runs(status);
`

func (l *Log) migrate() error {
	_, err := l.db.Exec(migration)
	return eris.Wrap(err, "runlog: migrate")
}

func (l *Log) Close() error {
	return l.db.Close()
}

// NewRunID returns a fresh identifier shared by all states of one run.
func NewRunID() string {
	return uuid.New().String()
}

// Start records the beginning of one state's processing and returns the
// state-run record ID.
func (l *Log) Start(ctx context.Context, runID, stateFIPS, stateAbbr string) (string, error) {
	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO state_runs (id, run_id, state_fips, state_abbr, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, runID, stateFIPS, stateAbbr, StatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: insert state run %s", stateAbbr)
	}
	return id, nil
}

// Finish marks a state run complete with its counters.
func (l *Log) Finish(ctx context.Context, id string, blocks, records int) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE state_runs SET status = ?, blocks = ?, records = ?, finished_at = ? WHERE id = ?`,
		StatusOK, blocks, records, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: finish state run %s", id)
	}
	return checkRowsAffected(res, id)
}

// Fail marks a state run failed with the error text.
func (l *Log) Fail(ctx context.Context, id string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE state_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		StatusFailed, msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail state run %s", id)
	}
	return checkRowsAffected(res, id)
}

// Filter narrows List results.
type Filter struct {
	RunID     string
	StateFIPS string
	Status    string
	Limit     int
}

// List returns state runs newest first.
func (l *Log) List(ctx context.Context, filter Filter) ([]StateRun, error) {
	query := `SELECT id, run_id, state_fips, state_abbr, status, blocks, records, COALESCE(error, ''), started_at, finished_at
		FROM state_runs WHERE 1=1`
	var args []any

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.StateFIPS != "" {
		query += ` AND state_fips = ?`
		args = append(args, filter.StateFIPS)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list state runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []StateRun
	for rows.Next() {
		var r StateRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.RunID, &r.StateFIPS, &r.StateAbbr, &r.Status, &r.Blocks, &r.Records, &r.Error, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "runlog: scan state run")
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "runlog: iterate state runs")
}

// Succeeded reports whether a state already has a successful record for
// the given run, used to skip states on resume.
func (l *Log) Succeeded(ctx context.Context, runID, stateFIPS string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM state_runs WHERE run_id = ? AND state_fips = ? AND status = ?`,
		runID, stateFIPS, StatusOK,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "runlog: query succeeded")
	}
	return n > 0, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "runlog: rows affected")
	}
	if n == 0 {
		return eris.Errorf("runlog: state run %s not found", id)
	}
	return nil
}

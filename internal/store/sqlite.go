package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/civicgrab/civicgrab/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	meetings    INTEGER NOT NULL,
	files       INTEGER NOT NULL,
	failed      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS file_results (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	meeting_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	strategy   TEXT NOT NULL,
	url        TEXT,
	dest       TEXT,
	bytes      INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL,
	error      TEXT
);

CREATE INDEX IF NOT EXISTS idx_file_results_run_id ON file_results(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReport stores a run and its per-file results in one transaction.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *model.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, meetings, files, failed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID, report.StartedAt, report.FinishedAt,
		report.Meetings, report.Files(), report.Failed(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	for _, r := range report.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO file_results (run_id, meeting_id, name, kind, strategy, url, dest, bytes, status, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ID, r.MeetingID, r.Name, string(r.Kind), string(r.Strategy),
			r.URL, r.Dest, r.Bytes, string(r.Status), r.Error,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert file result")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// ListRuns returns run summaries, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, meetings, files, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Meetings, &r.Files, &r.Failed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// GetReport loads one run with all its file results.
func (s *SQLiteStore) GetReport(ctx context.Context, runID string) (*model.RunReport, error) {
	report := &model.RunReport{ID: runID}
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at, meetings FROM runs WHERE id = ?`, runID,
	).Scan(&report.StartedAt, &report.FinishedAt, &report.Meetings)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT meeting_id, name, kind, strategy, url, dest, bytes, status, error
		 FROM file_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list file results")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			r              model.FileResult
			kind, strategy string
			status         string
		)
		if err := rows.Scan(&r.MeetingID, &r.Name, &kind, &strategy, &r.URL, &r.Dest, &r.Bytes, &status, &r.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan file result")
		}
		r.Kind = model.FileKind(kind)
		r.Strategy = model.Strategy(strategy)
		r.Status = model.FileStatus(status)
		report.Add(r)
	}
	return report, eris.Wrap(rows.Err(), "sqlite: iterate file results")
}

// Package runlog keeps a local ledger of ingestion runs and their per-job outcomes.
package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusPartial = "partial"
)

type Run struct {
	ID          string      `json:"id"`
	Trigger     string      `json:"trigger"`
	Sink        string      `json:"sink"`
	Status      string      `json:"status"`
	Jobs        int         `json:"jobs"`
	Envelopes   int         `json:"envelopes"`
	Message     string      `json:"message,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at,omitempty"`
	Results     []JobResult `json:"results,omitempty"`
}

type JobResult struct {
	RunID      string `json:"-"`
	Job        string `json:"job"`
	Category   string `json:"category"`
	Status     string `json:"status"`
	Envelopes  int    `json:"envelopes"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open creates (or reuses) the ledger database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("run ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingestion_runs (
			id TEXT PRIMARY KEY,
			triggered_by TEXT NOT NULL,
			sink TEXT NOT NULL,
			status TEXT NOT NULL,
			jobs INTEGER NOT NULL DEFAULT 0,
			envelopes INTEGER NOT NULL DEFAULT 0,
			message TEXT,
			started_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS ingestion_job_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			job TEXT NOT NULL,
			category TEXT NOT NULL,
			status TEXT NOT NULL,
			envelopes INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY(run_id) REFERENCES ingestion_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_job_results_run ON ingestion_job_results(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON ingestion_runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init run ledger: %w", err)
		}
	}
	return nil
}

func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is empty")
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (id, triggered_by, sink, status, jobs, message, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Trigger, run.Sink, run.Status, run.Jobs, nullableString(run.Message), run.StartedAt.UnixMilli())
	return err
}

func (s *Store) RecordJob(ctx context.Context, res JobResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_job_results (run_id, job, category, status, envelopes, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Job, res.Category, res.Status, res.Envelopes, nullableString(res.Error), res.DurationMs)
	return err
}

func (s *Store) FinishRun(ctx context.Context, id, status string, envelopes int, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_runs SET status=?, envelopes=?, message=?, completed_at=? WHERE id=?`,
		status, envelopes, nullableString(message), time.Now().UnixMilli(), id)
	return err
}

// ListRuns returns the newest runs first, without job results.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, triggered_by, sink, status, jobs, envelopes, message, started_at, completed_at
		FROM ingestion_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// LatestRun returns the most recent run with its job results. ok is false when the ledger is
// empty.
func (s *Store) LatestRun(ctx context.Context) (Run, bool, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil || len(runs) == 0 {
		return Run{}, false, err
	}
	run := runs[0]
	results, err := s.JobResults(ctx, run.ID)
	if err != nil {
		return Run{}, false, err
	}
	run.Results = results
	return run, true, nil
}

func (s *Store) JobResults(ctx context.Context, runID string) ([]JobResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, job, category, status, envelopes, error, duration_ms
		FROM ingestion_job_results WHERE run_id=? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JobResult
	for rows.Next() {
		var res JobResult
		var errText sql.NullString
		if err := rows.Scan(&res.RunID, &res.Job, &res.Category, &res.Status, &res.Envelopes, &errText, &res.DurationMs); err != nil {
			return nil, err
		}
		res.Error = errText.String
		out = append(out, res)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var message sql.NullString
	var started int64
	var completed sql.NullInt64
	if err := row.Scan(&run.ID, &run.Trigger, &run.Sink, &run.Status, &run.Jobs, &run.Envelopes, &message, &started, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Message = message.String
	run.StartedAt = time.UnixMilli(started).UTC()
	if completed.Valid {
		run.CompletedAt = time.UnixMilli(completed.Int64).UTC()
	}
	return run, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

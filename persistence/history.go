package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lexcodex/scriptforge/pipeline"
)

// RunRecord is one archived pipeline run. The script file on disk is always
// the latest run only; the history keeps everything the file overwrites.
type RunRecord struct {
	ID         int64
	CreatedAt  time.Time
	Request    string
	Status     string
	Plan       string
	RawOutput  string
	Code       string
	Language   string
	Confidence string
	ScriptPath string
	ExitCode   sql.NullInt64
	Stdout     string
	Stderr     string
	TimedOut   bool
	DurationMS int64
}

// HistoryStore persists run records in a SQLite database. It satisfies
// pipeline.RunRecorder.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore opens/creates the database at dbPath.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	if dbPath == "" {
		return nil, errors.New("history db path required")
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	store := &HistoryStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *HistoryStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TIMESTAMP NOT NULL,
		request TEXT NOT NULL,
		status TEXT NOT NULL,
		plan TEXT,
		raw_output TEXT,
		code TEXT,
		language TEXT,
		confidence TEXT,
		script_path TEXT,
		exit_code INTEGER,
		stdout TEXT,
		stderr TEXT,
		timed_out BOOLEAN NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record archives a finished run.
func (s *HistoryStore) Record(ctx context.Context, outcome *pipeline.RunOutcome) error {
	if outcome == nil {
		return errors.New("outcome required")
	}
	rec := recordFromOutcome(outcome)
	query := `
	INSERT INTO runs (
		created_at, request, status, plan, raw_output, code, language,
		confidence, script_path, exit_code, stdout, stderr, timed_out, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.CreatedAt, rec.Request, rec.Status, rec.Plan, rec.RawOutput,
		rec.Code, rec.Language, rec.Confidence, rec.ScriptPath,
		rec.ExitCode, rec.Stdout, rec.Stderr, rec.TimedOut, rec.DurationMS,
	)
	return err
}

// Recent returns up to limit runs, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT id, created_at, request, status, plan, raw_output, code, language,
		confidence, script_path, exit_code, stdout, stderr, timed_out, duration_ms
	FROM runs ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.Request, &rec.Status, &rec.Plan,
			&rec.RawOutput, &rec.Code, &rec.Language, &rec.Confidence,
			&rec.ScriptPath, &rec.ExitCode, &rec.Stdout, &rec.Stderr,
			&rec.TimedOut, &rec.DurationMS,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func recordFromOutcome(outcome *pipeline.RunOutcome) RunRecord {
	rec := RunRecord{
		CreatedAt:  outcome.StartedAt,
		Request:    outcome.Request,
		Status:     string(outcome.Status),
		ScriptPath: outcome.ScriptPath,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if outcome.Plan != nil {
		rec.Plan = outcome.Plan.Text
	}
	if outcome.Code != nil {
		rec.RawOutput = outcome.Code.RawOutput
		rec.Code = outcome.Code.Code
		rec.Language = outcome.Code.Language
		rec.Confidence = string(outcome.Code.Confidence)
	}
	if outcome.Execution != nil {
		rec.ExitCode = sql.NullInt64{Int64: int64(outcome.Execution.ExitCode), Valid: true}
		rec.Stdout = outcome.Execution.Stdout
		rec.Stderr = outcome.Execution.Stderr
		rec.TimedOut = outcome.Execution.TimedOut
		rec.DurationMS = outcome.Execution.Duration.Milliseconds()
	}
	return rec
}

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"spool/internal/config"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	filename TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	plan TEXT NOT NULL DEFAULT '',
	size_bytes INTEGER NOT NULL DEFAULT 0,
	stage TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL DEFAULT 'running',
	error_message TEXT NOT NULL DEFAULT '',
	transcribed INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
CREATE INDEX IF NOT EXISTS idx_runs_filename ON runs(filename);
`

// Open initializes or connects to the journal database under the log dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Begin records the start of a run and returns its identifier.
func (s *Store) Begin(ctx context.Context, kind Kind, filename, userID string) (int64, error) {
	if s == nil {
		return 0, nil
	}
	now := time.Now().UTC()
	var id int64
	err := s.retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			`INSERT INTO runs (kind, filename, user_id, outcome, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			string(kind), filename, userID, string(OutcomeRunning), now, now)
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("journal begin: %w", err)
	}
	return id, nil
}

// SetStage updates the stage a run has reached, along with the plan and
// size learned along the way.
func (s *Store) SetStage(ctx context.Context, id int64, stage, plan string, sizeBytes int64) error {
	if s == nil || id == 0 {
		return nil
	}
	err := s.retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`UPDATE runs SET stage = ?, plan = CASE WHEN ? != '' THEN ? ELSE plan END,
			 size_bytes = CASE WHEN ? > 0 THEN ? ELSE size_bytes END, updated_at = ?
			 WHERE id = ?`,
			stage, plan, plan, sizeBytes, sizeBytes, time.Now().UTC(), id)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("journal set stage: %w", err)
	}
	return nil
}

// MarkTranscribed flags a run whose transcription sub-pipeline reported.
func (s *Store) MarkTranscribed(ctx context.Context, id int64) error {
	if s == nil || id == 0 {
		return nil
	}
	err := s.retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`UPDATE runs SET transcribed = 1, updated_at = ? WHERE id = ?`,
			time.Now().UTC(), id)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("journal mark transcribed: %w", err)
	}
	return nil
}

// Finish records the terminal outcome of a run.
func (s *Store) Finish(ctx context.Context, id int64, outcome Outcome, stage, errorMessage string) error {
	if s == nil || id == 0 {
		return nil
	}
	err := s.retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`UPDATE runs SET outcome = ?, stage = ?, error_message = ?, updated_at = ? WHERE id = ?`,
			string(outcome), stage, errorMessage, time.Now().UTC(), id)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("journal finish: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, filename, user_id, plan, size_bytes, stage, outcome,
		        error_message, transcribed, created_at, updated_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal list: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var kind, outcome string
		var transcribed int
		if err := rows.Scan(&run.ID, &kind, &run.Filename, &run.UserID, &run.Plan,
			&run.SizeBytes, &run.Stage, &outcome, &run.ErrorMessage, &transcribed,
			&run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		run.Kind = Kind(kind)
		run.Outcome = Outcome(outcome)
		run.Transcribed = transcribed != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Summarize aggregates run counts per outcome.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var summary Summary
	if s == nil {
		return summary, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM runs GROUP BY outcome`)
	if err != nil {
		return summary, fmt.Errorf("journal summarize: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return summary, fmt.Errorf("journal scan: %w", err)
		}
		summary.Total += count
		switch Outcome(outcome) {
		case OutcomeRunning:
			summary.Running = count
		case OutcomeOK:
			summary.OK = count
		case OutcomeFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

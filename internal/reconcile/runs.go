package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunStore keeps the history of reconciliation runs.
type RunStore interface {
	Start(ctx context.Context, runID string, opts RunOptions, startedAt time.Time) error
	Finish(ctx context.Context, s *Summary, status string, runErr error) error
}

const createRunsTable = `CREATE TABLE IF NOT EXISTS reconciliation_runs (
	run_id       UUID PRIMARY KEY,
	target_state CHAR(2) NOT NULL,
	dry_run      BOOLEAN NOT NULL,
	apply        BOOLEAN NOT NULL,
	status       TEXT NOT NULL,
	version_id   TEXT,
	scanned      INTEGER NOT NULL DEFAULT 0,
	resolved     INTEGER NOT NULL DEFAULT 0,
	unresolved   INTEGER NOT NULL DEFAULT 0,
	invalid      INTEGER NOT NULL DEFAULT 0,
	ambiguous    INTEGER NOT NULL DEFAULT 0,
	staged       INTEGER NOT NULL DEFAULT 0,
	applied      INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ
)`

const insertRun = `INSERT INTO reconciliation_runs (run_id, target_state, dry_run, apply, status, started_at) VALUES ($1, $2, $3, $4, $5, $6)`

const finishRun = `UPDATE reconciliation_runs SET status = $2, version_id = $3, scanned = $4, resolved = $5, unresolved = $6, invalid = $7, ambiguous = $8, staged = $9, applied = $10, error = $11, finished_at = $12 WHERE run_id = $1`

type PostgresRunStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresRunStore(db *sql.DB) *PostgresRunStore {
	return &PostgresRunStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureSchema creates the reconciliation_runs table when missing.
func (s *PostgresRunStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("create reconciliation_runs: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) Start(ctx context.Context, runID string, opts RunOptions, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, insertRun, runID, opts.TargetState, opts.DryRun, opts.Apply, RunStatusRunning, startedAt)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

func (s *PostgresRunStore) Finish(ctx context.Context, sum *Summary, status string, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	var version sql.NullString
	if sum.VersionID != nil {
		version = sql.NullString{String: idString(sum.VersionID), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, finishRun,
		sum.RunID, status, version,
		sum.Scanned, sum.Resolved, sum.Unresolved, sum.Invalid, sum.Ambiguous, sum.Staged, sum.Applied,
		errText, s.now(),
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", sum.RunID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: no such run", sum.RunID)
	}
	return nil
}

// NopRunStore discards run history.
type NopRunStore struct{}

func (NopRunStore) Start(context.Context, string, RunOptions, time.Time) error { return nil }

func (NopRunStore) Finish(context.Context, *Summary, string, error) error { return nil }

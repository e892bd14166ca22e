package sqlstore

import (
	"context"

	"audio-interviewer/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	driver  string
	version string
}

// NewRunner creates a new migration runner for the given driver
func NewRunner(driver string) *MigrationRunner {
	return &MigrationRunner{
		driver:  driver,
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSessionsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create interview_sessions table")
	}

	if err := r.createReportsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create interview_reports table")
	}

	if err := r.createAudioTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create audio_blobs table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) timestampType() string {
	if r.driver == DriverPostgres {
		return "TIMESTAMPTZ"
	}
	return "TIMESTAMP"
}

func (r *MigrationRunner) binaryType() string {
	if r.driver == DriverPostgres {
		return "BYTEA"
	}
	return "BLOB"
}

func (r *MigrationRunner) createSessionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS interview_sessions (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			job_description TEXT NOT NULL,
			questions TEXT NOT NULL,
			answers TEXT NOT NULL,
			current_index INTEGER NOT NULL DEFAULT 0,
			version BIGINT NOT NULL DEFAULT 1,
			created_at `+r.timestampType()+` NOT NULL,
			updated_at `+r.timestampType()+` NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createReportsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS interview_reports (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			email TEXT NOT NULL,
			job_description TEXT NOT NULL,
			candidate_fit_score INTEGER NOT NULL,
			strengths TEXT NOT NULL,
			improvement_areas TEXT NOT NULL,
			suggested_follow_up TEXT NOT NULL,
			answers TEXT NOT NULL,
			created_at `+r.timestampType()+` NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createAudioTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audio_blobs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			size BIGINT NOT NULL,
			data `+r.binaryType()+` NOT NULL,
			created_at `+r.timestampType()+` NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_interview_reports_session ON interview_reports(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interview_reports_email ON interview_reports(email)`,
		`CREATE INDEX IF NOT EXISTS idx_interview_sessions_email ON interview_sessions(email)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

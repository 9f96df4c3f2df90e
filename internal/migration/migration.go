package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"pairstat/internal/errors"
)

// MigrationRunner handles database schema migrations. Statements are kept to
// the subset shared by PostgreSQL and SQLite.
type MigrationRunner struct{}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{}
}

// Run executes all database migrations in order. Every step is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createReportsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_reports table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createReportsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_reports (
			id VARCHAR(36) PRIMARY KEY,
			mode VARCHAR(20) NOT NULL,
			condition_a VARCHAR(100) NOT NULL,
			condition_b VARCHAR(100) NOT NULL,
			main_test VARCHAR(40) NOT NULL DEFAULT '',
			main_status VARCHAR(40) NOT NULL,
			p_value DOUBLE PRECISION,
			participants INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_analysis_reports_created_at ON analysis_reports (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_reports_main_test ON analysis_reports (main_test)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"lazyprep/internal"
	"lazyprep/internal/errors"
)

// MigrationRunner creates the run store schema. The statements are
// portable between PostgreSQL and SQLite.
type MigrationRunner struct {
	version string
	logger  *internal.Logger
}

// NewRunner creates a new migration runner
func NewRunner(logger *internal.Logger) *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		logger:  internal.OrDefault(logger).Named("migration"),
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create runs table")
	}
	r.createIndexes(ctx, db)
	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR(64) PRIMARY KEY,
			source_path TEXT NOT NULL DEFAULT '',
			target_column TEXT NOT NULL DEFAULT '',
			row_count INTEGER NOT NULL DEFAULT 0,
			column_count INTEGER NOT NULL DEFAULT 0,
			warning_count INTEGER NOT NULL DEFAULT 0,
			metadata TEXT NOT NULL,
			created_at VARCHAR(40) NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_runs_source_path ON runs(source_path)",
	}
	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// index failures only cost query speed
			r.logger.Warn("failed to create index: %v", err)
		}
	}
}

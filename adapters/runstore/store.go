// Package runstore persists finished pipeline runs in PostgreSQL or SQLite
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"lazyprep/domain/core"
	"lazyprep/domain/metadata"
	"lazyprep/internal"
	"lazyprep/internal/errors"
	"lazyprep/internal/migration"
)

// timeLayout has fixed width so created_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one stored pipeline execution
type Run struct {
	ID           string    `db:"id"`
	SourcePath   string    `db:"source_path"`
	TargetColumn string    `db:"target_column"`
	RowCount     int       `db:"row_count"`
	ColumnCount  int       `db:"column_count"`
	WarningCount int       `db:"warning_count"`
	Metadata     string    `db:"metadata"`
	CreatedAt    time.Time `db:"-"`
	CreatedAtRaw string    `db:"created_at"`
}

// Store reads and writes runs
type Store struct {
	db     *sqlx.DB
	logger *internal.Logger
}

// DriverFor maps a DSN to a registered driver name. postgres:// and
// postgresql:// select lib/pq; sqlite://path, file: URIs, :memory: and
// plain paths select SQLite.
func DriverFor(dsn string) (driver, source string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://")
	}
	return "sqlite", dsn
}

// Open connects and runs migrations
func Open(ctx context.Context, dsn string, logger *internal.Logger) (*Store, error) {
	driver, source := DriverFor(dsn)
	db, err := sqlx.ConnectContext(ctx, driver, source)
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("failed to connect to %s run store", driver), err)
	}
	if driver == "sqlite" {
		// one connection keeps :memory: databases shared and serializes writes
		db.SetMaxOpenConns(1)
	}
	s, err := New(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open connection and ensures the schema exists
func New(ctx context.Context, db *sqlx.DB, logger *internal.Logger) (*Store, error) {
	logger = internal.OrDefault(logger).Named("runstore")
	if err := migration.NewRunner(logger).Run(ctx, db); err != nil {
		return nil, errors.StorageError("failed to migrate run store", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the run identified by md.RunID
func (s *Store) Save(ctx context.Context, md *metadata.Pipeline, rows, cols int) error {
	body, err := md.JSON()
	if err != nil {
		return errors.Wrap(err, "failed to marshal metadata")
	}
	source := ""
	if md.FileInfo != nil {
		source = md.FileInfo.Path
	}

	query := s.db.Rebind(`INSERT INTO runs (
		id, source_path, target_column, row_count, column_count, warning_count, metadata, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		source_path = excluded.source_path,
		target_column = excluded.target_column,
		row_count = excluded.row_count,
		column_count = excluded.column_count,
		warning_count = excluded.warning_count,
		metadata = excluded.metadata`)

	_, err = s.db.ExecContext(ctx, query,
		md.RunID.String(), source, md.TargetColumn, rows, cols, len(md.Warnings), string(body),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return errors.StorageError("failed to save run", err)
	}
	s.logger.Debug("Saved run %s", md.RunID)
	return nil
}

// Get returns the stored run
func (s *Store) Get(ctx context.Context, id core.RunID) (*Run, error) {
	var r Run
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT * FROM runs WHERE id = ?`), id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, errors.StorageError("failed to get run", err)
	}
	if err := r.parseTime(); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetMetadata decodes the stored metadata of a run
func (s *Store) GetMetadata(ctx context.Context, id core.RunID) (*metadata.Pipeline, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	md, err := metadata.Parse([]byte(r.Metadata))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode metadata of run %s", id)
	}
	return md, nil
}

// List returns the most recent runs first, without their metadata bodies
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []Run
	err := s.db.SelectContext(ctx, &runs, s.db.Rebind(`SELECT
		id, source_path, target_column, row_count, column_count, warning_count, '' AS metadata, created_at
	FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, errors.StorageError("failed to list runs", err)
	}
	for i := range runs {
		if err := runs[i].parseTime(); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *Run) parseTime() error {
	t, err := time.Parse(timeLayout, r.CreatedAtRaw)
	if err != nil {
		return errors.Wrapf(err, "bad created_at on run %s", r.ID)
	}
	r.CreatedAt = t
	return nil
}

// Package cleaner drops sparse columns and rows, rows with a missing target
// and exact duplicate rows, keeping column metadata in step with the table.
package cleaner

import (
	"context"

	"lazyprep/domain/metadata"
	"lazyprep/domain/stage"
	"lazyprep/domain/table"
	"lazyprep/internal"
	"lazyprep/internal/config"
)

// Options are the cleaner thresholds. Ratios above a threshold are dropped.
type Options struct {
	ColumnThreshold float64
	RowThreshold    float64
	DropNull        bool
}

// DefaultOptions returns the documented thresholds
func DefaultOptions() Options {
	return Options{ColumnThreshold: 0.7, RowThreshold: 0.7}
}

// Cleaner is the cleaning stage
type Cleaner struct {
	opts   Options
	logger *internal.Logger
}

// New validates the thresholds and creates a cleaner
func New(opts Options, logger *internal.Logger) (*Cleaner, error) {
	if err := config.CheckThreshold("column_threshold", opts.ColumnThreshold); err != nil {
		return nil, err
	}
	if err := config.CheckThreshold("row_threshold", opts.RowThreshold); err != nil {
		return nil, err
	}
	return &Cleaner{opts: opts, logger: internal.OrDefault(logger).Named("cleaner")}, nil
}

func (c *Cleaner) Name() stage.StageName { return stage.StageCleaner }

// Transform applies every cleaning step in order
func (c *Cleaner) Transform(ctx context.Context, t *table.Table, md *metadata.Pipeline) error {
	if md.CleaningStats.ColumnsDropped == nil {
		md.CleaningStats.ColumnsDropped = metadata.NameSet{}
	}
	c.logger.Info("Starting cleaning on %d rows x %d columns", t.NumRows(), t.NumCols())

	c.dropUnclassified(t, md)
	c.dropSparseColumns(t, md)
	if err := ctx.Err(); err != nil {
		return err
	}
	c.dropSparseRows(t, md)
	c.dropNullTarget(t, md)
	if c.opts.DropNull {
		c.dropAnyNull(t, md)
	}
	c.removeDuplicates(t, md)

	s := md.CleaningStats
	c.logger.Info("Cleaning completed: %d rows x %d columns (columns dropped %v, rows dropped %d, duplicates removed %d)",
		t.NumRows(), t.NumCols(), s.ColumnsDropped.Sorted(), s.RowsDropped, s.DuplicatesRemoved)
	return nil
}

func (c *Cleaner) dropColumns(t *table.Table, md *metadata.Pipeline, names []string) {
	removed := t.DropColumns(names...)
	md.RemoveColumns(names...)
	md.CleaningStats.ColumnsDropped.Add(removed...)
}

func (c *Cleaner) dropUnclassified(t *table.Table, md *metadata.Pipeline) {
	if len(md.UnclassifiedColumns) == 0 {
		return
	}
	names := append([]string(nil), md.UnclassifiedColumns...)
	c.logger.Info("Dropping %d unclassified columns: %v", len(names), names)
	c.dropColumns(t, md, names)
}

func (c *Cleaner) dropSparseColumns(t *table.Table, md *metadata.Pipeline) {
	var drop []string
	for _, col := range t.Columns() {
		if col.NullRatio() > c.opts.ColumnThreshold {
			drop = append(drop, col.Name)
		}
	}
	if len(drop) == 0 {
		return
	}
	c.logger.Info("Dropping %d columns with null ratio > %v: %v", len(drop), c.opts.ColumnThreshold, drop)
	c.dropColumns(t, md, drop)
}

func (c *Cleaner) dropSparseRows(t *table.Table, md *metadata.Pipeline) {
	if t.NumCols() == 0 {
		return
	}
	ncols := float64(t.NumCols())
	keep := make([]bool, t.NumRows())
	for i := range keep {
		keep[i] = float64(t.RowMissingCount(i))/ncols <= c.opts.RowThreshold
	}
	if n := t.KeepRows(keep); n > 0 {
		c.logger.Info("Dropped %d rows with null ratio > %v", n, c.opts.RowThreshold)
		md.CleaningStats.RowsDropped += n
	}
}

func (c *Cleaner) dropNullTarget(t *table.Table, md *metadata.Pipeline) {
	if md.TargetColumn == "" {
		return
	}
	target, ok := t.Column(md.TargetColumn)
	if !ok {
		c.logger.Warn("Target column %q not found in table", md.TargetColumn)
		md.Warn(string(stage.StageCleaner), "target column %q not found", md.TargetColumn)
		return
	}
	keep := make([]bool, t.NumRows())
	for i := range keep {
		keep[i] = !target.IsMissing(i)
	}
	if n := t.KeepRows(keep); n > 0 {
		c.logger.Info("Dropped %d rows with null values in target column %q", n, md.TargetColumn)
		md.CleaningStats.RowsDropped += n
	}
}

func (c *Cleaner) dropAnyNull(t *table.Table, md *metadata.Pipeline) {
	keep := make([]bool, t.NumRows())
	for i := range keep {
		keep[i] = t.RowMissingCount(i) == 0
	}
	if n := t.KeepRows(keep); n > 0 {
		c.logger.Info("Dropped %d remaining rows with any null value", n)
		md.CleaningStats.RowsDropped += n
	}
}

func (c *Cleaner) removeDuplicates(t *table.Table, md *metadata.Pipeline) {
	seen := make(map[string]bool, t.NumRows())
	keep := make([]bool, t.NumRows())
	for i := range keep {
		k := t.RowKey(i)
		keep[i] = !seen[k]
		seen[k] = true
	}
	if n := t.KeepRows(keep); n > 0 {
		c.logger.Info("Removed %d duplicate rows", n)
		md.CleaningStats.DuplicatesRemoved += n
	}
}

// Package outlier removes outlier rows column by column. Each column's
// bounds are computed on the table as already reduced by earlier columns.
package outlier

import (
	"context"

	"lazyprep/domain/metadata"
	"lazyprep/domain/stage"
	"lazyprep/domain/strategy"
	"lazyprep/domain/table"
	"lazyprep/internal"
)

// Options carry the configured global default and per-column overrides
type Options struct {
	Default   string
	Overrides map[string]string
}

// Engine is the outlier stage
type Engine struct {
	opts   Options
	logger *internal.Logger
}

// New creates an outlier engine
func New(opts Options, logger *internal.Logger) *Engine {
	return &Engine{opts: opts, logger: internal.OrDefault(logger).Named("outlier")}
}

func (e *Engine) Name() stage.StageName { return stage.StageOutlier }

// Transform visits columns in metadata order and drops outlier rows in place
func (e *Engine) Transform(ctx context.Context, t *table.Table, md *metadata.Pipeline) error {
	start := t.NumRows()
	for _, name := range md.Columns.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, _ := md.Column(name)
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		if md.IsTarget(name) || entry.IsCategorical() {
			e.logger.Debug("Skipping %s: target or categorical", name)
			continue
		}
		if !entry.IsNumeric() || col.Kind != table.KindNumeric {
			continue
		}

		method := e.Resolve(name, entry, md)
		e.logger.Debug("Column %s: applying %s", name, method)
		removed := e.apply(method, t, col, md)
		if removed > 0 {
			e.logger.Info("Found %d outliers in column %q (%s), dropped them", removed, name, method)
		}
	}
	e.logger.Info("Outlier detection completed. Total removed rows %d", start-t.NumRows())
	return nil
}

// Resolve picks the method by precedence: override, metadata recommendation,
// global default, then IQR. An unknown override goes straight to the global
// default; other unknown names are logged and skipped.
func (e *Engine) Resolve(name string, entry *metadata.Column, md *metadata.Pipeline) strategy.OutlierMethod {
	if o := e.opts.Overrides[name]; o != "" {
		if m, err := strategy.ParseOutlierMethod(o); err == nil {
			return m
		}
		e.unknown(name, "override", o, md)
		return e.fallback(name, md)
	}
	if r := recommended(entry); r != "" {
		if m, err := strategy.ParseOutlierMethod(r); err == nil {
			return m
		}
		e.unknown(name, "metadata", r, md)
	}
	return e.fallback(name, md)
}

func (e *Engine) fallback(name string, md *metadata.Pipeline) strategy.OutlierMethod {
	if d := e.opts.Default; d != "" {
		if m, err := strategy.ParseOutlierMethod(d); err == nil {
			return m
		}
		e.unknown(name, "default", d, md)
	}
	return strategy.DefaultOutlier
}

func (e *Engine) unknown(name, source, value string, md *metadata.Pipeline) {
	e.logger.Warn("Column %s: ignoring %s outlier method %q", name, source, value)
	md.Warn(string(stage.StageOutlier), "column %s: unknown %s outlier method %q", name, source, value)
}

func recommended(entry *metadata.Column) string {
	if entry == nil {
		return ""
	}
	return string(entry.RecommendedOutlier)
}

func (e *Engine) apply(method strategy.OutlierMethod, t *table.Table, col *table.Column, md *metadata.Pipeline) int {
	xs := col.Floats()
	var keep []bool
	switch method {
	case strategy.OutlierZScore:
		keep = zScoreMask(xs)
	case strategy.OutlierPercentile:
		keep = percentileMask(xs)
	case strategy.OutlierModifiedZ:
		keep = modifiedZMask(xs)
	case strategy.OutlierRange:
		keep = rangeMask(xs)
	case strategy.OutlierMAD:
		keep = madMask(xs)
	case strategy.OutlierLogIQR:
		var ok bool
		keep, ok = logIQRMask(xs)
		if !ok {
			e.logger.Warn("Column %q contains non-positive values, skipping log-space IQR", col.Name)
			md.Warn(string(stage.StageOutlier), "column %s: non-positive values, log-space IQR skipped", col.Name)
			return 0
		}
	default:
		keep = iqrMask(xs)
	}
	if keep == nil {
		return 0
	}
	return t.KeepRows(keep)
}

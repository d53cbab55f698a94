// Package impute fills missing values. Numeric feature columns get a
// per-column method; categorical columns and the target get their mode.
package impute

import (
	"context"
	"fmt"

	"lazyprep/domain/metadata"
	"lazyprep/domain/stage"
	"lazyprep/domain/strategy"
	"lazyprep/domain/table"
	"lazyprep/internal"
	"lazyprep/internal/errors"
)

// Options carry configured defaults and per-column overrides
type Options struct {
	Default            string
	CategoricalDefault string
	Overrides          map[string]string
	ForestTrees        int
	Seed               uint64
}

// Engine is the imputation stage
type Engine struct {
	opts   Options
	logger *internal.Logger
}

// New creates an imputation engine
func New(opts Options, logger *internal.Logger) *Engine {
	if opts.ForestTrees <= 0 {
		opts.ForestTrees = 50
	}
	return &Engine{opts: opts, logger: internal.OrDefault(logger).Named("imputer")}
}

func (e *Engine) Name() stage.StageName { return stage.StageImputer }

// Transform runs the numeric pass, then the categorical and target pass.
// Block methods run at most once per call and fill every numeric feature.
func (e *Engine) Transform(ctx context.Context, t *table.Table, md *metadata.Pipeline) error {
	ran := make(map[strategy.ImputeMethod]bool)
	for _, col := range t.Columns() {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := col.Name
		entry, _ := md.Column(name)
		if col.Kind != table.KindNumeric || md.IsTarget(name) || entry.IsCategorical() {
			continue
		}

		method := e.Resolve(name, entry, md)
		if method.IsBlock() {
			if ran[method] {
				continue
			}
			ran[method] = true
		} else if col.MissingCount() == 0 {
			continue
		}

		e.logger.Info("Imputing numeric column %q using method: %s", name, method)
		filled, err := e.safeApply(method, t, col, md)
		if err != nil {
			e.logger.Error("Error imputing column %q using %s: %v", name, method, err)
			md.Warn(string(stage.StageImputer), "column %s: %s failed: %v", name, method, err)
			continue
		}
		e.logger.Debug("Column %s: %d cells filled", name, filled)
	}

	e.categoricalPass(t, md)
	e.logger.Info("Imputation completed.")
	return nil
}

// Resolve picks the numeric method by precedence: override, metadata
// recommendation, global default, then Mean. An unknown override goes
// straight to the global default.
func (e *Engine) Resolve(name string, entry *metadata.Column, md *metadata.Pipeline) strategy.ImputeMethod {
	if o := e.opts.Overrides[name]; o != "" {
		if m, err := strategy.ParseImputeMethod(o); err == nil {
			return m
		}
		e.unknown(name, "override", o, md)
		return e.fallback(name, md)
	}
	if r := recommended(entry); r != "" {
		if m, err := strategy.ParseImputeMethod(r); err == nil {
			return m
		}
		e.unknown(name, "metadata", r, md)
	}
	return e.fallback(name, md)
}

func (e *Engine) fallback(name string, md *metadata.Pipeline) strategy.ImputeMethod {
	if d := e.opts.Default; d != "" {
		if m, err := strategy.ParseImputeMethod(d); err == nil {
			return m
		}
		e.unknown(name, "default", d, md)
	}
	return strategy.DefaultImpute
}

func (e *Engine) unknown(name, source, value string, md *metadata.Pipeline) {
	e.logger.Warn("Unknown method '%s' for column %s, using the default", value, name)
	md.Warn(string(stage.StageImputer), "column %s: unknown %s imputation method %q", name, source, value)
}

func recommended(entry *metadata.Column) string {
	if entry == nil {
		return ""
	}
	return string(entry.RecommendedImpute)
}

// safeApply turns panics from the numeric helpers into column errors
func (e *Engine) safeApply(method strategy.ImputeMethod, t *table.Table, col *table.Column, md *metadata.Pipeline) (filled int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.InternalError(fmt.Sprintf("panic: %v", r))
		}
	}()
	return e.apply(method, t, col, md)
}

func (e *Engine) apply(method strategy.ImputeMethod, t *table.Table, col *table.Column, md *metadata.Pipeline) (int, error) {
	switch method {
	case strategy.ImputeMedian:
		return fillMedian(col)
	case strategy.ImputeMode:
		return fillMode(col)
	case strategy.ImputeWinsorizedMean:
		return fillWinsorizedMean(col)
	case strategy.ImputeIterativeForest, strategy.ImputeIterativeBayesian, strategy.ImputeKNN:
		names := e.blockColumns(t, md)
		e.logger.Info("Applied %s on numeric features %v", method, names)
		return fillBlock(t, names, e.blockImputer(method))
	case strategy.ImputeRegressionMedian:
		return fillRegression(t, col, e.blockColumns(t, md))
	case strategy.ImputeKMeans:
		return fillKMeans(t, col, e.blockColumns(t, md), e.opts.Seed)
	default:
		return fillMean(col)
	}
}

// blockColumns lists the numeric features with at least one value. A numeric
// target is left out; it is mode filled by the categorical pass.
func (e *Engine) blockColumns(t *table.Table, md *metadata.Pipeline) []string {
	var names []string
	for _, c := range t.NumericColumns() {
		entry, _ := md.Column(c.Name)
		if md.IsTarget(c.Name) || entry.IsCategorical() || c.PresentCount() == 0 {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

func (e *Engine) categoricalPass(t *table.Table, md *metadata.Pipeline) {
	if d := e.opts.CategoricalDefault; d != "" {
		if m, err := strategy.ParseImputeMethod(d); err != nil || m != strategy.ImputeMode {
			e.logger.Warn("Categorical imputation %q is not supported, using Mode", d)
		}
	}
	for _, col := range t.Columns() {
		entry, _ := md.Column(col.Name)
		if !md.IsTarget(col.Name) && !entry.IsCategorical() {
			continue
		}
		if col.MissingCount() == 0 {
			continue
		}
		mode, ok := col.Mode()
		if !ok {
			e.logger.Warn("Cannot impute '%s': No mode found (column might be entirely missing).", col.Name)
			md.Warn(string(stage.StageImputer), "column %s: no mode, left unfilled", col.Name)
			continue
		}
		n := col.Fill(mode)
		e.logger.Info("Filled %d missing values in '%s' with mode: %s", n, col.Name, mode)
	}
}

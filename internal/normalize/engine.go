// Package normalize rescales numeric features and encodes categorical
// columns: one-hot for nominal features, label codes for the target.
package normalize

import (
	"context"
	"fmt"
	"math"

	"lazyprep/domain/metadata"
	"lazyprep/domain/stage"
	"lazyprep/domain/strategy"
	"lazyprep/domain/table"
	"lazyprep/internal"
	"lazyprep/internal/errors"
)

// Options carry the configured global default and per-column overrides
type Options struct {
	Default   string
	Overrides map[string]string
}

// Engine is the normalization stage
type Engine struct {
	opts   Options
	logger *internal.Logger
}

// New validates every configured method name up front
func New(opts Options, logger *internal.Logger) (*Engine, error) {
	if opts.Default != "" {
		if _, err := strategy.ParseNormalizeMethod(opts.Default); err != nil {
			return nil, errors.ConfigError(err)
		}
	}
	for col, m := range opts.Overrides {
		if _, err := strategy.ParseNormalizeMethod(m); err != nil {
			return nil, errors.ConfigError(fmt.Errorf("column %s: %w", col, err))
		}
	}
	return &Engine{opts: opts, logger: internal.OrDefault(logger).Named("normalizer")}, nil
}

func (e *Engine) Name() stage.StageName { return stage.StageNormalizer }

// Transform scales numeric features, one-hot encodes nominal categorical
// features and label-encodes a categorical target.
func (e *Engine) Transform(ctx context.Context, t *table.Table, md *metadata.Pipeline) error {
	for _, col := range t.NumericColumns() {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, _ := md.Column(col.Name)
		if md.IsTarget(col.Name) || entry.IsCategorical() {
			continue
		}
		method, err := e.Resolve(col.Name, entry)
		if err != nil {
			return err
		}
		e.logger.Debug("Column %s: applying %s", col.Name, method)
		col.SetFloats(Apply(method, col.Floats()))
	}

	if err := e.oneHot(t, md); err != nil {
		return err
	}
	e.labelEncodeTarget(t, md)
	return nil
}

// Resolve picks the method by precedence: override, metadata
// recommendation, global default, then min-max. Unknown names are
// configuration errors.
func (e *Engine) Resolve(name string, entry *metadata.Column) (strategy.NormalizeMethod, error) {
	var rec string
	if entry != nil {
		rec = string(entry.RecommendedNormalize)
	}
	for _, v := range []string{e.opts.Overrides[name], rec, e.opts.Default} {
		if v == "" {
			continue
		}
		m, err := strategy.ParseNormalizeMethod(v)
		if err != nil {
			return "", errors.ConfigError(fmt.Errorf("column %s: %w", name, err))
		}
		return m, nil
	}
	return strategy.DefaultNormalize, nil
}

// Apply runs one normalization method over a column; NaN stays NaN
func Apply(method strategy.NormalizeMethod, xs []float64) []float64 {
	switch method {
	case strategy.NormalizeYeoJohnsonStandard:
		return YeoJohnson(xs)
	case strategy.NormalizeBoxCox:
		return BoxCox(xs)
	case strategy.NormalizeStandard:
		return Standardize(xs)
	case strategy.NormalizeSqrtReciprocal:
		return SqrtReciprocal(xs)
	case strategy.NormalizeLogQuantile:
		return QuantileNormal(Log1p(xs))
	case strategy.NormalizeLogPower:
		return YeoJohnson(Log1p(xs))
	default:
		return MinMax(xs)
	}
}

// oneHot replaces each nominal categorical feature with one boolean
// column per distinct value, named <column>_<value>, appended at the end.
func (e *Engine) oneHot(t *table.Table, md *metadata.Pipeline) error {
	var sources []*table.Column
	for _, col := range t.Columns() {
		entry, _ := md.Column(col.Name)
		if md.IsTarget(col.Name) || !entry.IsCategorical() || entry.TextType == metadata.TextTypeTextData {
			continue
		}
		sources = append(sources, col)
	}

	for _, col := range sources {
		values := col.Distinct()
		indicators := make([]*table.Column, 0, len(values))
		for _, v := range values {
			name := fmt.Sprintf("%s_%s", col.Name, v.String())
			if t.Has(name) {
				return errors.InvalidInput(fmt.Sprintf("one-hot column %q already exists", name))
			}
			cells := make([]table.Value, col.Len())
			for i, cell := range col.Values {
				cells[i] = table.Bool(!cell.IsMissing() && cell.Equal(v))
			}
			indicators = append(indicators, table.NewColumn(name, table.KindBoolean, cells))
		}

		t.DropColumns(col.Name)
		md.RemoveColumns(col.Name)
		for _, ind := range indicators {
			if err := t.AddColumn(ind); err != nil {
				return err
			}
			md.Columns.Set(ind.Name, &metadata.Column{Category: metadata.CategoryBoolean, EncodedFrom: col.Name})
		}
		e.logger.Info("One-hot encoded %q into %d columns", col.Name, len(indicators))
	}
	return nil
}

// labelEncodeTarget replaces a categorical target with sorted class codes
// and keeps the mapping for inverse lookup.
func (e *Engine) labelEncodeTarget(t *table.Table, md *metadata.Pipeline) {
	if md.TargetColumn == "" {
		return
	}
	col, ok := t.Column(md.TargetColumn)
	if !ok {
		e.logger.Warn("Target column %q not found, skipping label encoding", md.TargetColumn)
		return
	}
	entry, _ := md.Column(col.Name)
	if !entry.IsCategorical() && col.Kind != table.KindText {
		return
	}

	labels := make([]string, 0, col.Len())
	for _, v := range col.Values {
		if !v.IsMissing() {
			labels = append(labels, v.String())
		}
	}
	enc := metadata.NewLabelEncoding(col.Name, labels)
	codes := make([]float64, col.Len())
	for i, v := range col.Values {
		codes[i] = math.NaN()
		if v.IsMissing() {
			continue
		}
		if c, ok := enc.Encode(v.String()); ok {
			codes[i] = float64(c)
		}
	}
	col.SetFloats(codes)
	md.TargetEncoding = enc
	e.logger.Info("Label encoded target %q with %d classes", col.Name, len(enc.Classes))
}

// InverseLabels maps label codes back to class names; unknown codes and
// NaN become empty strings.
func InverseLabels(enc *metadata.LabelEncoding, codes []float64) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		if math.IsNaN(c) {
			continue
		}
		out[i], _ = enc.Decode(int(c))
	}
	return out
}

// Package profiling classifies table columns and fits candidate
// distributions to numeric columns, recording the strategy recommendation
// for each fitted family.
package profiling

import (
	"context"

	"lazyprep/domain/metadata"
	"lazyprep/domain/stage"
	"lazyprep/domain/strategy"
	"lazyprep/domain/table"
	"lazyprep/internal"
)

// Analyzer populates column metadata from the table. It never mutates the table.
type Analyzer struct {
	fitter *DistributionFitter
	logger *internal.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(opts FitOptions, logger *internal.Logger) *Analyzer {
	return &Analyzer{
		fitter: NewDistributionFitter(opts),
		logger: internal.OrDefault(logger).Named("analyzer"),
	}
}

func (a *Analyzer) Name() stage.StageName { return stage.StageAnalyze }

// Transform runs Analyze so the analyzer can sit in a stage list
func (a *Analyzer) Transform(ctx context.Context, t *table.Table, md *metadata.Pipeline) error {
	return a.Analyze(ctx, t, md)
}

// Analyze rebuilds md.Columns in table column order. Columns with no present
// values or an unknown kind get no entry and are listed as unclassified.
func (a *Analyzer) Analyze(ctx context.Context, t *table.Table, md *metadata.Pipeline) error {
	md.Columns = metadata.NewColumnSet()
	md.UnclassifiedColumns = nil

	for _, col := range t.Columns() {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.logger.Debug("Analyzing column %s (%s)", col.Name, col.Kind)

		if col.PresentCount() == 0 || col.Kind == table.KindUnknown {
			a.logger.Warn("Column %s has no classifiable values, leaving it for the cleaner", col.Name)
			md.Warn(string(stage.StageAnalyze), "column %s unclassified", col.Name)
			md.UnclassifiedColumns = append(md.UnclassifiedColumns, col.Name)
			continue
		}

		switch col.Kind {
		case table.KindNumeric:
			md.Columns.Set(col.Name, a.analyzeNumeric(ctx, col, md))
		case table.KindText:
			md.Columns.Set(col.Name, analyzeCategorical(col))
		case table.KindDatetime:
			md.Columns.Set(col.Name, &metadata.Column{Category: metadata.CategoryDatetime})
		case table.KindBoolean:
			md.Columns.Set(col.Name, &metadata.Column{Category: metadata.CategoryBoolean})
		}
	}
	a.logger.Info("Analyzed %d columns (%d unclassified)", md.Columns.Len(), len(md.UnclassifiedColumns))
	return nil
}

func (a *Analyzer) analyzeNumeric(ctx context.Context, col *table.Column, md *metadata.Pipeline) *metadata.Column {
	entry := &metadata.Column{Category: metadata.CategoryNumeric}
	fit, err := a.fitter.Fit(ctx, col.Floats())
	if err != nil {
		a.logger.Warn("Distribution fit failed for %s: %v", col.Name, err)
		md.Warn(string(stage.StageAnalyze), "distribution fit failed for %s: %v", col.Name, err)
		entry.DistributionName = strategy.FitFailed
		entry.FitError = err.Error()
		entry.ApplyRecommendation(strategy.Default())
		return entry
	}
	entry.DistributionName = fit.Name
	entry.DistributionParams = fit.Params
	entry.ApplyRecommendation(strategy.Recommend(fit.Name))
	a.logger.Info("Distribution for %s: %s %v", col.Name, fit.Name, fit.Params)
	return entry
}

func analyzeCategorical(col *table.Column) *metadata.Column {
	entry := &metadata.Column{
		Category:    metadata.CategoryCategorical,
		Cardinality: len(col.Distinct()),
	}
	if mode, ok := col.Mode(); ok {
		s := mode.String()
		entry.ModeValue = &s
	}
	return entry
}

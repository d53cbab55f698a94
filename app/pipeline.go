// Package app wires the preprocessing stages into a runnable pipeline
package app

import (
	"context"
	"fmt"
	"time"

	"lazyprep/adapters/loader"
	"lazyprep/domain/core"
	"lazyprep/domain/metadata"
	"lazyprep/domain/stage"
	"lazyprep/domain/table"
	"lazyprep/internal"
	"lazyprep/internal/cleaner"
	"lazyprep/internal/config"
	"lazyprep/internal/errors"
	"lazyprep/internal/impute"
	"lazyprep/internal/normalize"
	"lazyprep/internal/outlier"
	"lazyprep/internal/profiling"
	"lazyprep/internal/textproc"
)

// Option configures a Pipeline at construction
type Option func(*Pipeline)

// WithConfig replaces the default configuration
func WithConfig(cfg *config.Config) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}

// WithLogger sets the logger shared by every stage
func WithLogger(logger *internal.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// entry is either a builtin stage resolved from configuration at run time
// or a caller supplied stage
type entry struct {
	name   stage.StageName
	custom stage.Stage
}

// Pipeline loads a file, analyzes it and runs the ordered stages over the
// table, threading one metadata value through all of them.
type Pipeline struct {
	path   string
	target string
	cfg    *config.Config
	logger *internal.Logger

	entries []entry
	md      *metadata.Pipeline
	table   *table.Table
}

// New creates a pipeline for the file at path. An empty target falls back to
// the configured target column.
func New(path, target string, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{path: path, target: target}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg == nil {
		p.cfg = config.Default()
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	p.logger = internal.OrDefault(p.logger)
	p.md = metadata.New(p.targetColumn())
	return p, nil
}

func (p *Pipeline) targetColumn() string {
	if p.target != "" {
		return p.target
	}
	return p.cfg.Pipeline.TargetColumn
}

// AddCleaner appends the cleaning stage
func (p *Pipeline) AddCleaner() *Pipeline { return p.add(stage.StageCleaner) }

// AddOutlierDetection appends the outlier stage
func (p *Pipeline) AddOutlierDetection() *Pipeline { return p.add(stage.StageOutlier) }

// AddImputer appends the imputation stage
func (p *Pipeline) AddImputer() *Pipeline { return p.add(stage.StageImputer) }

// AddTextProcessor appends the text handling stage
func (p *Pipeline) AddTextProcessor() *Pipeline { return p.add(stage.StageTextProcessor) }

// AddNormalizer appends the normalization stage
func (p *Pipeline) AddNormalizer() *Pipeline { return p.add(stage.StageNormalizer) }

// AddStage appends a caller supplied stage
func (p *Pipeline) AddStage(s stage.Stage) *Pipeline {
	p.entries = append(p.entries, entry{name: s.Name(), custom: s})
	return p
}

func (p *Pipeline) add(name stage.StageName) *Pipeline {
	p.entries = append(p.entries, entry{name: name})
	return p
}

// Stages lists the stage names that Run will execute after load and analyze.
// Without explicit Add calls this is the configured default order.
func (p *Pipeline) Stages() []stage.StageName {
	entries := p.resolved()
	out := make([]stage.StageName, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}

func (p *Pipeline) resolved() []entry {
	if len(p.entries) > 0 {
		return p.entries
	}
	names := p.cfg.StageNames()
	out := make([]entry, len(names))
	for i, n := range names {
		out[i] = entry{name: n}
	}
	return out
}

// Configure validates and installs a new configuration. Builtin stages are
// rebuilt from it on the next Run and the default stage list is re-resolved.
func (p *Pipeline) Configure(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.cfg = cfg
	p.logger.Info("Configuration updated, stages: %v", p.Stages())
	return nil
}

// Config returns the active configuration
func (p *Pipeline) Config() *config.Config { return p.cfg }

// SaveConfig writes the active configuration as YAML
func (p *Pipeline) SaveConfig(path string) error {
	if err := config.Save(p.cfg, path); err != nil {
		return errors.Wrapf(err, "save config %s", path)
	}
	p.logger.Info("Configuration saved to %s", path)
	return nil
}

// Metadata returns the metadata of the last run
func (p *Pipeline) Metadata() *metadata.Pipeline { return p.md }

// Table returns the table of the last run
func (p *Pipeline) Table() *table.Table { return p.table }

// MetadataJSON renders the metadata of the last run
func (p *Pipeline) MetadataJSON() ([]byte, error) {
	return p.md.JSON()
}

// build creates the builtin stage for name from the active configuration
func (p *Pipeline) build(name stage.StageName) (stage.Stage, error) {
	c := p.cfg
	switch name {
	case stage.StageCleaner:
		return cleaner.New(cleaner.Options{
			ColumnThreshold: c.Cleaner.ColumnThreshold,
			RowThreshold:    c.Cleaner.RowThreshold,
			DropNull:        c.Cleaner.DropNull,
		}, p.logger)
	case stage.StageTextProcessor:
		return textproc.New(textproc.Options{
			TextDataColumns: c.TextProcessor.TextDataColumns,
			Lowercase:       c.TextProcessor.Lowercase,
			RemoveStopwords: c.TextProcessor.RemoveStopwords,
		}, p.logger), nil
	case stage.StageOutlier:
		return outlier.New(outlier.Options{
			Default:   c.Outlier.Default,
			Overrides: c.Outlier.OverrideMap(),
		}, p.logger), nil
	case stage.StageImputer:
		return impute.New(impute.Options{
			Default:            c.Imputer.Default,
			CategoricalDefault: c.Imputer.CategoricalDefault,
			Overrides:          c.Imputer.OverrideMap(),
			ForestTrees:        c.Imputer.ForestTrees,
			Seed:               c.Imputer.Seed,
		}, p.logger), nil
	case stage.StageNormalizer:
		return normalize.New(normalize.Options{
			Default:   c.Normalizer.Default,
			Overrides: c.Normalizer.OverrideMap(),
		}, p.logger)
	}
	return nil, errors.ConfigInvalid(fmt.Sprintf("unknown stage %q", name))
}

func (p *Pipeline) stages() ([]stage.Stage, error) {
	entries := p.resolved()
	out := make([]stage.Stage, 0, len(entries))
	for _, e := range entries {
		if e.custom != nil {
			out = append(out, e.custom)
			continue
		}
		s, err := p.build(e.name)
		if err != nil {
			return nil, errors.Wrapf(err, "configure stage %s", e.name)
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *Pipeline) newLoader() *loader.Loader {
	opts := loader.DefaultOptions()
	opts.NormalizeColumns = p.cfg.Loader.NormalizeColumns
	opts.Sheet = p.cfg.Loader.Sheet
	return loader.New(opts, p.logger)
}

func (p *Pipeline) newAnalyzer() *profiling.Analyzer {
	a := p.cfg.Analyzer
	return profiling.NewAnalyzer(profiling.FitOptions{
		SampleSize: a.SampleSize,
		Seed:       a.Seed,
		Bins:       a.Bins,
		Timeout:    a.FitTimeout,
	}, p.logger)
}

// Analyze loads the file and populates column metadata without running
// any transform stage.
func (p *Pipeline) Analyze(ctx context.Context) (*metadata.Pipeline, error) {
	p.md = metadata.New(p.targetColumn())
	if err := p.loadAndAnalyze(ctx); err != nil {
		return p.md, err
	}
	return p.md, nil
}

// Run executes load, analyze and every stage in order, returning the
// transformed table. Configuration errors abort before the file is read.
func (p *Pipeline) Run(ctx context.Context) (*table.Table, error) {
	stages, err := p.stages()
	if err != nil {
		return nil, err
	}
	p.md = metadata.New(p.targetColumn())
	if err := p.fingerprint(); err != nil {
		return nil, err
	}
	p.logger.Info("Run %s: %s with stages %v (config %s)", p.md.RunID, p.path, p.Stages(), p.md.ConfigHash.Short())
	start := time.Now()

	if err := p.loadAndAnalyze(ctx); err != nil {
		return nil, err
	}
	for _, s := range stages {
		if err := p.runStage(ctx, s, p.table); err != nil {
			return p.table, err
		}
	}

	p.logger.Info("Run %s finished in %s: %d rows x %d columns, %d warnings",
		p.md.RunID, time.Since(start).Round(time.Millisecond), p.table.NumRows(), p.table.NumCols(), len(p.md.Warnings))
	return p.table, nil
}

// fingerprint records the config and stage plan hashes so runs can be compared
func (p *Pipeline) fingerprint() error {
	h, err := p.cfg.Fingerprint()
	if err != nil {
		return errors.Wrap(err, "fingerprint config")
	}
	p.md.ConfigHash = h
	names := p.Stages()
	plan := make([]string, len(names))
	for i, n := range names {
		plan[i] = string(n)
	}
	p.md.StageListHash = core.ComputeStageListHash(plan)
	return nil
}

func (p *Pipeline) loadAndAnalyze(ctx context.Context) error {
	load := stage.Func{StageName: stage.StageLoad, Fn: func(ctx context.Context, _ *table.Table, md *metadata.Pipeline) error {
		t, err := p.newLoader().Load(ctx, p.path, md)
		if err != nil {
			return err
		}
		p.table = t
		if target := md.TargetColumn; target != "" && !t.Has(target) {
			p.logger.Warn("Target column %q not found in %s", target, p.path)
			md.Warn(string(stage.StageLoad), "target column %q not found", target)
		}
		return nil
	}}
	p.table = table.MustNew()
	if err := p.runStage(ctx, load, p.table); err != nil {
		return err
	}
	return p.runStage(ctx, p.newAnalyzer(), p.table)
}

// runStage executes one stage and appends its audit record. The load stage
// swaps p.table, so the after counts are read from p.table.
func (p *Pipeline) runStage(ctx context.Context, s stage.Stage, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	audit := metadata.StageAudit{
		Stage:         string(s.Name()),
		StartedAt:     time.Now().UTC(),
		RowsBefore:    t.NumRows(),
		ColumnsBefore: t.NumCols(),
	}
	warned := len(p.md.Warnings)
	p.logger.Debug("Stage %s (%s) starting", s.Name(), stage.KindOf(s.Name()))

	err := s.Transform(ctx, t, p.md)

	audit.DurationMs = time.Since(audit.StartedAt).Milliseconds()
	audit.RowsAfter = p.table.NumRows()
	audit.ColumnsAfter = p.table.NumCols()
	audit.Warnings = p.md.WarningsSince(warned)
	if err != nil {
		audit.Error = err.Error()
	}
	p.md.Stages = append(p.md.Stages, audit)

	if err != nil {
		p.logger.Error("Stage %s failed: %v", s.Name(), err)
		return errors.Wrapf(err, "stage %s", s.Name())
	}
	p.logger.Info("Stage %s: %d -> %d rows, %d -> %d columns in %dms",
		s.Name(), audit.RowsBefore, audit.RowsAfter, audit.ColumnsBefore, audit.ColumnsAfter, audit.DurationMs)
	return nil
}

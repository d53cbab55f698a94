package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/metadata"
	"lazyprep/domain/stage"
	"lazyprep/domain/table"
	"lazyprep/internal"
	"lazyprep/internal/config"
	"lazyprep/internal/errors"
	"lazyprep/internal/testkit"
)

func weatherCSV(t *testing.T) string {
	t.Helper()
	gen := testkit.NewDatasetGenerator(testkit.DefaultDatasetConfig())
	path, err := testkit.WriteCSV(t.TempDir(), "weather.csv", gen.WeatherTable())
	require.NoError(t, err)
	return path
}

func newPipeline(t *testing.T, path, target string, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLogger(internal.NewNopLogger())}, opts...)
	p, err := New(path, target, opts...)
	require.NoError(t, err)
	return p
}

func TestRunDefaultStages(t *testing.T) {
	p := newPipeline(t, weatherCSV(t), "WeatherType")

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	md := p.Metadata()

	var stages []string
	for _, s := range md.Stages {
		stages = append(stages, s.Stage)
		assert.Empty(t, s.Error)
	}
	assert.Equal(t, []string{"loader", "analyzer", "cleaner", "text_processor", "outlier", "imputer", "normalizer"}, stages)

	assert.True(t, md.CleaningStats.ColumnsDropped.Has("Unused"))
	assert.False(t, out.Has("Unused"))
	assert.Equal(t, out.Names(), md.Columns.Names(), "every table column has one metadata entry")

	for _, col := range out.Columns() {
		assert.Zero(t, col.MissingCount(), col.Name)
	}

	assert.False(t, out.Has("Season"))
	var indicators []string
	for _, n := range out.Names() {
		if strings.HasPrefix(n, "Season_") {
			indicators = append(indicators, n)
		}
	}
	assert.Equal(t, []string{"Season_autumn", "Season_spring", "Season_summer", "Season_winter"}, indicators)

	require.NotNil(t, md.TargetEncoding)
	assert.Equal(t, []string{"Cloudy", "Rainy", "Snowy", "Sunny"}, md.TargetEncoding.Classes)
	target, ok := out.Column("WeatherType")
	require.True(t, ok)
	assert.Equal(t, table.KindNumeric, target.Kind)

	temp, _ := md.Column("Temperature")
	require.NotNil(t, temp)
	assert.NotEmpty(t, temp.DistributionName)
	assert.NotEmpty(t, temp.RecommendedOutlier)

	assert.False(t, md.ConfigHash.IsEmpty())
	assert.False(t, md.StageListHash.IsEmpty())

	require.NotNil(t, md.FileInfo)
	assert.Equal(t, "csv", md.FileInfo.Format)

	body, err := p.MetadataJSON()
	require.NoError(t, err)
	back, err := metadata.Parse(body)
	require.NoError(t, err)
	assert.Equal(t, md.RunID, back.RunID)
	assert.Equal(t, md.Columns.Names(), back.Columns.Names())
}

func TestStagesResolution(t *testing.T) {
	p := newPipeline(t, "unused.csv", "")
	assert.Equal(t, stage.DefaultOrder, p.Stages())

	cfg := config.Default()
	cfg.Pipeline.Stages = []string{"cleaner", "outlier"}
	require.NoError(t, p.Configure(cfg))
	assert.Equal(t, []stage.StageName{stage.StageCleaner, stage.StageOutlier}, p.Stages(), "default list follows configuration")

	custom := stage.Func{StageName: "drop_first", Fn: func(context.Context, *table.Table, *metadata.Pipeline) error { return nil }}
	p.AddCleaner().AddImputer().AddStage(custom).AddNormalizer()
	assert.Equal(t, []stage.StageName{stage.StageCleaner, stage.StageImputer, "drop_first", stage.StageNormalizer}, p.Stages())
}

func TestConfigureRejectsInvalidThreshold(t *testing.T) {
	p := newPipeline(t, "unused.csv", "")
	cfg := config.Default()
	cfg.Cleaner.ColumnThreshold = 1.5
	err := p.Configure(cfg)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.Equal(t, 0.7, p.Config().Cleaner.ColumnThreshold)
}

func TestRunAbortsOnBadNormalizerBeforeLoading(t *testing.T) {
	p := newPipeline(t, "does-not-exist.csv", "")
	p.AddNormalizer()
	p.cfg.Normalizer.Default = "cube_root"

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.Empty(t, p.Metadata().Stages, "nothing ran")
}

func TestCustomStageSeesMetadataAndFailureIsAudited(t *testing.T) {
	var seen int
	counter := stage.Func{StageName: "count_columns", Fn: func(_ context.Context, tb *table.Table, md *metadata.Pipeline) error {
		seen = md.Columns.Len()
		md.Warn("count_columns", "saw %d columns", tb.NumCols())
		return nil
	}}
	failing := stage.Func{StageName: "explode", Fn: func(context.Context, *table.Table, *metadata.Pipeline) error {
		return fmt.Errorf("boom")
	}}

	p := newPipeline(t, weatherCSV(t), "WeatherType")
	p.AddCleaner().AddStage(counter).AddStage(failing).AddImputer()

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explode")
	assert.Equal(t, 8, seen, "cleaner removed the empty column")

	stages := p.Metadata().Stages
	require.Len(t, stages, 5, "imputer never ran")
	assert.Equal(t, []string{"saw 8 columns"}, stages[3].Warnings)
	assert.Equal(t, "explode", stages[4].Stage)
	assert.Equal(t, "boom", stages[4].Error)
}

func TestMissingTargetIsWarned(t *testing.T) {
	p := newPipeline(t, weatherCSV(t), "Nope")
	md, err := p.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, md.Stages, 2)
	assert.Contains(t, md.Stages[0].Warnings, `target column "Nope" not found`)
	assert.Contains(t, md.UnclassifiedColumns, "Unused")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.TargetColumn = "WeatherType"
	cfg.Outlier.Overrides = []config.ColumnMethod{{Column: "Temperature", Method: "Z-score"}}
	p := newPipeline(t, "unused.csv", "", WithConfig(cfg))

	path := filepath.Join(t.TempDir(), "conf", "lazyprep.yaml")
	require.NoError(t, p.SaveConfig(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WeatherType", loaded.Pipeline.TargetColumn)
	assert.Equal(t, map[string]string{"Temperature": "Z-score"}, loaded.Outlier.OverrideMap())
	assert.Equal(t, "WeatherType", p.Metadata().TargetColumn, "empty target falls back to configuration")
}

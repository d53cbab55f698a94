package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/core"
	"lazyprep/domain/stage"
	"lazyprep/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.7, c.Cleaner.ColumnThreshold)
	assert.Equal(t, 0.7, c.Cleaner.RowThreshold)
	assert.Equal(t, "Mean", c.Imputer.Default)
	assert.Equal(t, "Mode", c.Imputer.CategoricalDefault)
	assert.Equal(t, 1500, c.Analyzer.SampleSize)
	assert.Equal(t, uint64(42), c.Analyzer.Seed)
	assert.Equal(t, 10*time.Second, c.Analyzer.FitTimeout)
	assert.Equal(t, stage.DefaultOrder, c.StageNames())
}

func TestLoadFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lazyprep.yaml")
	yml := `
pipeline:
  target_column: WeatherType
  stages: [cleaner, outlier]
cleaner:
  column_threshold: 0.5
outlier:
  default: Z-score
  overrides:
    - column: Temperature
      method: MAD
normalizer:
  overrides:
    - column: Humidity
      method: minmax
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WeatherType", c.Pipeline.TargetColumn)
	assert.Equal(t, 0.5, c.Cleaner.ColumnThreshold)
	assert.Equal(t, 0.7, c.Cleaner.RowThreshold)
	assert.Equal(t, "Z-score", c.Outlier.Default)
	assert.Equal(t, map[string]string{"Temperature": "MAD"}, c.Outlier.OverrideMap())
	assert.Equal(t, []stage.StageName{stage.StageCleaner, stage.StageOutlier}, c.StageNames())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("LAZYPREP_CLEANER_ROW_THRESHOLD", "0.25")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.25, c.Cleaner.RowThreshold)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		sent   error
	}{
		{"column threshold above one", func(c *Config) { c.Cleaner.ColumnThreshold = 1.5 }, core.ErrInvalidThreshold},
		{"negative row threshold", func(c *Config) { c.Cleaner.RowThreshold = -0.1 }, core.ErrInvalidThreshold},
		{"unknown normalizer", func(c *Config) { c.Normalizer.Default = "robust" }, core.ErrUnknownMethod},
		{"unknown normalizer override", func(c *Config) {
			c.Normalizer.Overrides = []ColumnMethod{{Column: "x", Method: "nope"}}
		}, core.ErrUnknownMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sent)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}

	c := Default()
	c.Outlier.Default = "not-a-method"
	assert.NoError(t, c.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	c := Default()
	c.Pipeline.TargetColumn = "y"
	c.Imputer.Overrides = []ColumnMethod{{Column: "Age", Method: "KNN"}}
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	require.NoError(t, Save(c, path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "y", back.Pipeline.TargetColumn)
	assert.Equal(t, map[string]string{"Age": "KNN"}, back.Imputer.OverrideMap())
	assert.Equal(t, "Mode", back.Imputer.CategoricalDefault)
}

func TestFingerprintTracksChanges(t *testing.T) {
	a, err := Default().Fingerprint()
	require.NoError(t, err)
	b, err := Default().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c := Default()
	c.Cleaner.RowThreshold = 0.5
	changed, err := c.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, changed)
}

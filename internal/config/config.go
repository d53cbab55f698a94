package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"lazyprep/domain/core"
	"lazyprep/domain/stage"
	"lazyprep/domain/strategy"
	"lazyprep/internal/errors"
)

// Config represents the complete pipeline configuration
type Config struct {
	Pipeline      PipelineConfig      `mapstructure:"pipeline" yaml:"pipeline"`
	Loader        LoaderConfig        `mapstructure:"loader" yaml:"loader"`
	Analyzer      AnalyzerConfig      `mapstructure:"analyzer" yaml:"analyzer"`
	Cleaner       CleanerConfig       `mapstructure:"cleaner" yaml:"cleaner"`
	Outlier       MethodConfig        `mapstructure:"outlier" yaml:"outlier"`
	Imputer       ImputerConfig       `mapstructure:"imputer" yaml:"imputer"`
	Normalizer    MethodConfig        `mapstructure:"normalizer" yaml:"normalizer"`
	TextProcessor TextProcessorConfig `mapstructure:"text_processor" yaml:"text_processor"`
}

// PipelineConfig holds run-level settings
type PipelineConfig struct {
	TargetColumn string   `mapstructure:"target_column" yaml:"target_column"`
	Stages       []string `mapstructure:"stages" yaml:"stages"`
	Output       string   `mapstructure:"output" yaml:"output"`
	StoreDSN     string   `mapstructure:"store_dsn" yaml:"store_dsn"`
	LogLevel     string   `mapstructure:"log_level" yaml:"log_level"`
}

// LoaderConfig holds ingestion settings
type LoaderConfig struct {
	NormalizeColumns bool   `mapstructure:"normalize_columns" yaml:"normalize_columns"`
	Sheet            string `mapstructure:"sheet" yaml:"sheet"`
}

// AnalyzerConfig holds distribution fitting settings
type AnalyzerConfig struct {
	SampleSize int           `mapstructure:"sample_size" yaml:"sample_size"`
	Seed       uint64        `mapstructure:"seed" yaml:"seed"`
	FitTimeout time.Duration `mapstructure:"fit_timeout" yaml:"fit_timeout"`
	Bins       int           `mapstructure:"bins" yaml:"bins"`
}

// CleanerConfig holds null-ratio thresholds
type CleanerConfig struct {
	ColumnThreshold float64 `mapstructure:"column_threshold" yaml:"column_threshold"`
	RowThreshold    float64 `mapstructure:"row_threshold" yaml:"row_threshold"`
	DropNull        bool    `mapstructure:"drop_null" yaml:"drop_null"`
}

// ColumnMethod pins a method for one column
type ColumnMethod struct {
	Column string `mapstructure:"column" yaml:"column"`
	Method string `mapstructure:"method" yaml:"method"`
}

// MethodConfig holds a global default and per-column overrides.
// Overrides are a list because viper folds map keys to lower case.
type MethodConfig struct {
	Default   string         `mapstructure:"default" yaml:"default"`
	Overrides []ColumnMethod `mapstructure:"overrides" yaml:"overrides"`
}

// OverrideMap returns the overrides keyed by column name
func (m MethodConfig) OverrideMap() map[string]string {
	out := make(map[string]string, len(m.Overrides))
	for _, o := range m.Overrides {
		out[o.Column] = o.Method
	}
	return out
}

// ImputerConfig extends MethodConfig with the categorical default
type ImputerConfig struct {
	MethodConfig       `mapstructure:",squash" yaml:",inline"`
	CategoricalDefault string `mapstructure:"categorical_default" yaml:"categorical_default"`
	ForestTrees        int    `mapstructure:"forest_trees" yaml:"forest_trees"`
	Seed               uint64 `mapstructure:"seed" yaml:"seed"`
}

// TextProcessorConfig holds text column settings
type TextProcessorConfig struct {
	TextDataColumns []string `mapstructure:"text_data_columns" yaml:"text_data_columns"`
	Lowercase       bool     `mapstructure:"lowercase" yaml:"lowercase"`
	RemoveStopwords bool     `mapstructure:"remove_stopwords" yaml:"remove_stopwords"`
}

// Default returns the documented defaults
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Stages:   stageStrings(stage.DefaultOrder),
			LogLevel: "INFO",
		},
		Analyzer: AnalyzerConfig{
			SampleSize: 1500,
			Seed:       42,
			FitTimeout: 10 * time.Second,
			Bins:       100,
		},
		Cleaner: CleanerConfig{
			ColumnThreshold: 0.7,
			RowThreshold:    0.7,
		},
		Imputer: ImputerConfig{
			MethodConfig:       MethodConfig{Default: string(strategy.ImputeMean)},
			CategoricalDefault: string(strategy.ImputeMode),
			ForestTrees:        50,
		},
		TextProcessor: TextProcessorConfig{
			Lowercase:       true,
			RemoveStopwords: true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("pipeline.target_column", d.Pipeline.TargetColumn)
	v.SetDefault("pipeline.stages", d.Pipeline.Stages)
	v.SetDefault("pipeline.output", "")
	v.SetDefault("pipeline.store_dsn", "")
	v.SetDefault("pipeline.log_level", d.Pipeline.LogLevel)
	v.SetDefault("loader.normalize_columns", false)
	v.SetDefault("loader.sheet", "")
	v.SetDefault("analyzer.sample_size", d.Analyzer.SampleSize)
	v.SetDefault("analyzer.seed", d.Analyzer.Seed)
	v.SetDefault("analyzer.fit_timeout", d.Analyzer.FitTimeout)
	v.SetDefault("analyzer.bins", d.Analyzer.Bins)
	v.SetDefault("cleaner.column_threshold", d.Cleaner.ColumnThreshold)
	v.SetDefault("cleaner.row_threshold", d.Cleaner.RowThreshold)
	v.SetDefault("cleaner.drop_null", false)
	v.SetDefault("outlier.default", "")
	v.SetDefault("imputer.default", d.Imputer.Default)
	v.SetDefault("imputer.categorical_default", d.Imputer.CategoricalDefault)
	v.SetDefault("imputer.forest_trees", d.Imputer.ForestTrees)
	v.SetDefault("imputer.seed", d.Imputer.Seed)
	v.SetDefault("normalizer.default", "")
	v.SetDefault("text_processor.text_data_columns", []string{})
	v.SetDefault("text_processor.lowercase", d.TextProcessor.Lowercase)
	v.SetDefault("text_processor.remove_stopwords", d.TextProcessor.RemoveStopwords)
}

// Load loads configuration from defaults, an optional file and LAZYPREP_* env vars.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LAZYPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(errors.ConfigError(err), "read config %s", cfgFile)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(errors.ConfigError(err), "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the configuration as YAML, creating parent directories
func Save(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects thresholds outside [0,1], unknown stage names and
// unknown normalization methods. Unknown outlier and imputation names are
// tolerated here; the engines log them and fall back.
func (c *Config) Validate() error {
	if err := CheckThreshold("cleaner.column_threshold", c.Cleaner.ColumnThreshold); err != nil {
		return err
	}
	if err := CheckThreshold("cleaner.row_threshold", c.Cleaner.RowThreshold); err != nil {
		return err
	}
	if _, err := stage.ParseStageNames(c.Pipeline.Stages); err != nil {
		return errors.ConfigError(err)
	}
	if c.Normalizer.Default != "" {
		if _, err := strategy.ParseNormalizeMethod(c.Normalizer.Default); err != nil {
			return errors.ConfigError(err)
		}
	}
	for _, o := range c.Normalizer.Overrides {
		if _, err := strategy.ParseNormalizeMethod(o.Method); err != nil {
			return errors.ConfigError(fmt.Errorf("column %s: %w", o.Column, err))
		}
	}
	if c.Analyzer.SampleSize < 0 || c.Analyzer.Bins < 0 {
		return errors.ConfigInvalid("analyzer sample_size and bins must be non-negative")
	}
	return nil
}

// CheckThreshold returns a configuration error when v is outside [0,1]
func CheckThreshold(name string, v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return errors.ConfigError(core.NewThresholdError(name, v))
	}
	return nil
}

// Fingerprint hashes the YAML form of the configuration
func (c *Config) Fingerprint() (core.Hash, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal yaml: %w", err)
	}
	return core.NewHash(b), nil
}

// StageNames returns the configured builtin stage order
func (c *Config) StageNames() []stage.StageName {
	names, err := stage.ParseStageNames(c.Pipeline.Stages)
	if err != nil || len(names) == 0 {
		return stage.DefaultOrder
	}
	return names
}

func stageStrings(names []stage.StageName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

// Package metadata holds the per-run context every pipeline stage reads and
// enriches: column classification, fitted distributions, resolved strategies,
// cleaning statistics and the stage audit trail.
package metadata

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"lazyprep/domain/core"
	"lazyprep/domain/strategy"
)

// Category is the semantic classification of a column
type Category string

const (
	CategoryNumeric     Category = "numeric"
	CategoryCategorical Category = "categorical"
	CategoryDatetime    Category = "datetime"
	CategoryBoolean     Category = "boolean"
	CategoryUnsupported Category = "unsupported"
)

// Text types assigned by the text processor
const (
	TextTypeNominal  = "nominal"
	TextTypeTextData = "text_data"
)

// Column describes one table column
type Column struct {
	Category Category `json:"category"`

	// numeric only
	DistributionName     string                   `json:"distribution_name,omitempty"`
	DistributionParams   map[string]float64       `json:"distribution_params,omitempty"`
	RecommendedOutlier   strategy.OutlierMethod   `json:"recommended_outlier_method,omitempty"`
	RecommendedNormalize strategy.NormalizeMethod `json:"recommended_normalization_method,omitempty"`
	RecommendedImpute    strategy.ImputeMethod    `json:"recommended_imputation_method,omitempty"`
	FitError             string                   `json:"fit_error,omitempty"`

	// categorical only
	Cardinality int     `json:"cardinality,omitempty"`
	ModeValue   *string `json:"mode_value,omitempty"`
	TextType    string  `json:"text_type,omitempty"`

	// one-hot indicator columns
	EncodedFrom string `json:"encoded_from,omitempty"`
}

// IsNumeric reports whether the column carries distribution fields
func (c *Column) IsNumeric() bool { return c != nil && c.Category == CategoryNumeric }

// IsCategorical reports whether the column is categorical
func (c *Column) IsCategorical() bool { return c != nil && c.Category == CategoryCategorical }

// FitFailed reports whether the distribution fit failed
func (c *Column) FitFailed() bool {
	return c.IsNumeric() && c.DistributionName == strategy.FitFailed
}

// ApplyRecommendation copies a strategy triple into the column
func (c *Column) ApplyRecommendation(r strategy.Recommendation) {
	c.RecommendedOutlier = r.Outlier
	c.RecommendedNormalize = r.Normalize
	c.RecommendedImpute = r.Impute
}

// FileInfo is stored verbatim from the loader
type FileInfo struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	Encoding  string `json:"encoding,omitempty"`
	Sheet     string `json:"sheet,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// NameSet is a set of names serialised as a sorted list
type NameSet map[string]struct{}

// Add inserts names into the set
func (s NameSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Has reports membership
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s NameSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *NameSet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	*s = make(NameSet, len(names))
	s.Add(names...)
	return nil
}

// CleaningStats accumulates across cleaner invocations
type CleaningStats struct {
	ColumnsDropped    NameSet `json:"columns_dropped"`
	RowsDropped       int     `json:"rows_dropped"`
	DuplicatesRemoved int     `json:"duplicates_removed"`
}

// StageAudit records one stage execution
type StageAudit struct {
	Stage         string    `json:"stage"`
	StartedAt     time.Time `json:"started_at"`
	DurationMs    int64     `json:"duration_ms"`
	RowsBefore    int       `json:"rows_before"`
	RowsAfter     int       `json:"rows_after"`
	ColumnsBefore int       `json:"columns_before"`
	ColumnsAfter  int       `json:"columns_after"`
	Warnings      []string  `json:"warnings,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Warning is a logged fallback kept in the metadata trail
type Warning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Pipeline is the shared mutable context threaded through every stage
type Pipeline struct {
	RunID               core.RunID     `json:"run_id"`
	TargetColumn        string         `json:"target_column"`
	ConfigHash          core.Hash      `json:"config_hash,omitempty"`
	StageListHash       core.Hash      `json:"stage_list_hash,omitempty"`
	CleaningStats       CleaningStats  `json:"cleaning_stats"`
	FileInfo            *FileInfo      `json:"file_info,omitempty"`
	Columns             *ColumnSet     `json:"columns"`
	UnclassifiedColumns []string       `json:"unclassified_columns,omitempty"`
	TargetEncoding      *LabelEncoding `json:"target_encoding,omitempty"`
	Stages              []StageAudit   `json:"stages,omitempty"`
	Warnings            []Warning      `json:"warnings,omitempty"`
}

// New creates empty metadata for a run
func New(target string) *Pipeline {
	return &Pipeline{
		RunID:         core.NewRunID(),
		TargetColumn:  target,
		CleaningStats: CleaningStats{ColumnsDropped: NameSet{}},
		Columns:       NewColumnSet(),
	}
}

// Column returns the metadata entry for name
func (p *Pipeline) Column(name string) (*Column, bool) {
	return p.Columns.Get(name)
}

// IsTarget reports whether name is the configured target column
func (p *Pipeline) IsTarget(name string) bool {
	return p.TargetColumn != "" && p.TargetColumn == name
}

// RemoveColumns deletes metadata entries, keeping the table/metadata invariant
func (p *Pipeline) RemoveColumns(names ...string) {
	for _, n := range names {
		p.Columns.Delete(n)
	}
	if len(p.UnclassifiedColumns) == 0 {
		return
	}
	drop := NameSet{}
	drop.Add(names...)
	kept := p.UnclassifiedColumns[:0]
	for _, n := range p.UnclassifiedColumns {
		if !drop.Has(n) {
			kept = append(kept, n)
		}
	}
	p.UnclassifiedColumns = kept
}

// Warn appends a fallback message to the trail
func (p *Pipeline) Warn(stage, format string, args ...any) {
	p.Warnings = append(p.Warnings, Warning{Stage: stage, Message: fmt.Sprintf(format, args...)})
}

// WarningsSince returns the messages recorded after the first n warnings
func (p *Pipeline) WarningsSince(n int) []string {
	if n >= len(p.Warnings) {
		return nil
	}
	out := make([]string, 0, len(p.Warnings)-n)
	for _, w := range p.Warnings[n:] {
		out = append(out, w.Message)
	}
	return out
}

// JSON renders the metadata as indented JSON
func (p *Pipeline) JSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Parse decodes metadata produced by JSON
func Parse(b []byte) (*Pipeline, error) {
	p := &Pipeline{Columns: NewColumnSet()}
	if err := json.Unmarshal(b, p); err != nil {
		return nil, err
	}
	if p.CleaningStats.ColumnsDropped == nil {
		p.CleaningStats.ColumnsDropped = NameSet{}
	}
	return p, nil
}

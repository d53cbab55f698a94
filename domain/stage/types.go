package stage

import (
	"context"
	"fmt"

	"lazyprep/domain/metadata"
	"lazyprep/domain/table"
)

// StageName represents a named stage in the pipeline
type StageName string

// StageKind categorizes stages by origin
type StageKind string

const (
	StageKindBuiltin StageKind = "builtin" // shipped transforms
	StageKindCustom  StageKind = "custom"  // caller-injected
)

// Predefined stage names
const (
	StageLoad          StageName = "loader"
	StageAnalyze       StageName = "analyzer"
	StageCleaner       StageName = "cleaner"
	StageTextProcessor StageName = "text_processor"
	StageOutlier       StageName = "outlier"
	StageImputer       StageName = "imputer"
	StageNormalizer    StageName = "normalizer"
)

// DefaultOrder is the stage list used when configuration names none
var DefaultOrder = []StageName{StageCleaner, StageTextProcessor, StageOutlier, StageImputer, StageNormalizer}

// Stage transforms the table in place and enriches the shared metadata.
// CONTRACT: a stage that drops a column removes its metadata entry in the same call.
type Stage interface {
	Name() StageName
	Transform(ctx context.Context, t *table.Table, md *metadata.Pipeline) error
}

// Func adapts a function to the Stage interface
type Func struct {
	StageName StageName
	Fn        func(ctx context.Context, t *table.Table, md *metadata.Pipeline) error
}

func (f Func) Name() StageName { return f.StageName }

func (f Func) Transform(ctx context.Context, t *table.Table, md *metadata.Pipeline) error {
	return f.Fn(ctx, t, md)
}

// KindOf returns builtin for predefined names and custom otherwise
func KindOf(name StageName) StageKind {
	switch name {
	case StageLoad, StageAnalyze, StageCleaner, StageTextProcessor, StageOutlier, StageImputer, StageNormalizer:
		return StageKindBuiltin
	}
	return StageKindCustom
}

// ParseStageNames validates configured builtin stage names, keeping order
func ParseStageNames(names []string) ([]StageName, error) {
	out := make([]StageName, 0, len(names))
	seen := make(map[StageName]bool)
	for _, n := range names {
		sn := StageName(n)
		switch sn {
		case StageCleaner, StageTextProcessor, StageOutlier, StageImputer, StageNormalizer:
		default:
			return nil, fmt.Errorf("unknown stage %q", n)
		}
		if seen[sn] {
			return nil, fmt.Errorf("duplicate stage %q", n)
		}
		seen[sn] = true
		out = append(out, sn)
	}
	return out, nil
}

// PipelineSummary provides high-level run statistics
type PipelineSummary struct {
	TotalStages   int   `json:"total_stages"`
	Failed        int   `json:"failed"`
	Warnings      int   `json:"warnings"`
	TotalDuration int64 `json:"total_duration_ms"`
	RowsIn        int   `json:"rows_in"`
	RowsOut       int   `json:"rows_out"`
}

// Summarize folds the stage audits of a run
func Summarize(audits []metadata.StageAudit) PipelineSummary {
	var s PipelineSummary
	for i, a := range audits {
		if i == 0 {
			s.RowsIn = a.RowsBefore
		}
		s.TotalStages++
		if a.Error != "" {
			s.Failed++
		}
		s.Warnings += len(a.Warnings)
		s.TotalDuration += a.DurationMs
		s.RowsOut = a.RowsAfter
	}
	return s
}

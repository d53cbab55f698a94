package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/metadata"
	"lazyprep/domain/table"
)

func TestParseStageNames(t *testing.T) {
	got, err := ParseStageNames([]string{"cleaner", "outlier"})
	require.NoError(t, err)
	assert.Equal(t, []StageName{StageCleaner, StageOutlier}, got)

	_, err = ParseStageNames([]string{"cleaner", "cleaner"})
	assert.Error(t, err)
	_, err = ParseStageNames([]string{"bogus"})
	assert.Error(t, err)
}

func TestFuncStage(t *testing.T) {
	called := false
	var s Stage = Func{StageName: "tag", Fn: func(_ context.Context, _ *table.Table, md *metadata.Pipeline) error {
		called = true
		md.Warn("tag", "ran")
		return nil
	}}
	md := metadata.New("")
	require.NoError(t, s.Transform(context.Background(), table.MustNew(), md))
	assert.True(t, called)
	assert.Equal(t, StageKindCustom, KindOf(s.Name()))
	assert.Equal(t, StageKindBuiltin, KindOf(StageImputer))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]metadata.StageAudit{
		{Stage: "cleaner", RowsBefore: 10, RowsAfter: 8, DurationMs: 3, Warnings: []string{"w"}},
		{Stage: "outlier", RowsBefore: 8, RowsAfter: 7, DurationMs: 2, Error: "boom"},
	})
	assert.Equal(t, 2, s.TotalStages)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, int64(5), s.TotalDuration)
	assert.Equal(t, 10, s.RowsIn)
	assert.Equal(t, 7, s.RowsOut)
}

package runstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/core"
	"lazyprep/domain/metadata"
	"lazyprep/internal"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", internal.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		dsn, driver, source string
	}{
		{"postgres://u:p@localhost/db?sslmode=disable", "postgres", "postgres://u:p@localhost/db?sslmode=disable"},
		{"postgresql://localhost/db", "postgres", "postgresql://localhost/db"},
		{"sqlite://runs.db", "sqlite", "runs.db"},
		{":memory:", "sqlite", ":memory:"},
		{"/tmp/runs.db", "sqlite", "/tmp/runs.db"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			d, s := DriverFor(tt.dsn)
			assert.Equal(t, tt.driver, d)
			assert.Equal(t, tt.source, s)
		})
	}
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	md := metadata.New("label")
	md.FileInfo = &metadata.FileInfo{Path: "weather.csv", Format: "csv"}
	md.Columns.Set("temp", &metadata.Column{Category: metadata.CategoryNumeric, DistributionName: "norm"})
	md.Warn("imputer", "fallback")
	require.NoError(t, s.Save(ctx, md, 10, 3))

	run, err := s.Get(ctx, md.RunID)
	require.NoError(t, err)
	assert.Equal(t, "weather.csv", run.SourcePath)
	assert.Equal(t, "label", run.TargetColumn)
	assert.Equal(t, 10, run.RowCount)
	assert.Equal(t, 3, run.ColumnCount)
	assert.Equal(t, 1, run.WarningCount)
	assert.False(t, run.CreatedAt.IsZero())

	back, err := s.GetMetadata(ctx, md.RunID)
	require.NoError(t, err)
	assert.Equal(t, md.RunID, back.RunID)
	entry, ok := back.Column("temp")
	require.True(t, ok)
	assert.Equal(t, "norm", entry.DistributionName)

	// saving again replaces the row
	require.NoError(t, s.Save(ctx, md, 8, 3))
	run, err = s.Get(ctx, md.RunID)
	require.NoError(t, err)
	assert.Equal(t, 8, run.RowCount)
}

func TestGetMissingRun(t *testing.T) {
	_, err := openMemory(t).Get(context.Background(), core.RunID("nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRunNotFound))
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	var ids []core.RunID
	for i := 0; i < 3; i++ {
		md := metadata.New("")
		require.NoError(t, s.Save(ctx, md, i, 1))
		ids = append(ids, md.RunID)
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2].String(), runs[0].ID)
	assert.Equal(t, ids[1].String(), runs[1].ID)
	assert.Empty(t, runs[0].Metadata)
}

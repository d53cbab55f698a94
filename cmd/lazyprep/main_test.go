package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/metadata"
	"lazyprep/internal/testkit"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--log-level", "ERROR"))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazyprep.yaml")
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "column_threshold: 0.7")

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err, "existing files are not overwritten")
}

func TestRunStoreAndReport(t *testing.T) {
	dir := t.TempDir()
	gen := testkit.NewDatasetGenerator(testkit.DefaultDatasetConfig())
	input, err := testkit.WriteCSV(dir, "weather.csv", gen.WeatherTable())
	require.NoError(t, err)

	output := filepath.Join(dir, "out", "weather.csv")
	metaPath := filepath.Join(dir, "out", "meta.json")
	store := filepath.Join(dir, "runs.db")

	_, err = execute(t, "run", input, "--target", "WeatherType", "--output", output, "--metadata", metaPath, "--store", store)
	require.NoError(t, err)
	assert.FileExists(t, output)

	body, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	md, err := metadata.Parse(body)
	require.NoError(t, err)
	assert.Equal(t, "WeatherType", md.TargetColumn)

	list, err := execute(t, "runs", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, list, md.RunID.String())

	rendered, err := execute(t, "report", "--store", store, "--run", md.RunID.String())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rendered, "# Preprocessing report"))

	html, err := execute(t, "report", metaPath, "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
}

func TestReportNeedsInput(t *testing.T) {
	_, err := execute(t, "report")
	assert.Error(t, err)
}

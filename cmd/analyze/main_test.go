package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simon3728/Data-Analysis-Election/internal/cli"
	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
)

const analyzeConfig = `
analysis:
  label: label
  candidates: [x1]
  years: [2000, 2004]
  folds: 2
  test_fraction: 0.25
  models:
    families: [linear]
sources:
  - name: values
    path: values.csv
    format: csv
    state: {column: State}
    year: {column: Year}
    columns:
      - {name: label, type: float, required: true}
      - {name: x1, type: float}
verify:
  states: [Alabama, Alaska, Arizona, Arkansas]
plots:
  enabled: false
`

const values = `State,Year,label,x1
Alabama,2000,12,1
Alabama,2004,14,2
Alaska,2000,16,3
Alaska,2004,18,4
Arizona,2000,20,5
Arizona,2004,22,6
Arkansas,2000,24,7
Arkansas,2004,26,8
`

func setup(t *testing.T) (string, cli.Options) {
	t.Helper()
	root := t.TempDir()
	cfgPath := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(analyzeConfig), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, config.DefaultDataDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, config.DefaultDataDir, "values.csv"), []byte(values), 0o644))
	return root, cli.Options{Logger: infrastructure.NewLogger(io.Discard, "error")}
}

func TestAnalyze(t *testing.T) {
	root, opts := setup(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", filepath.Join(root, "config.yaml"), "-root", root, "-no-plots"}, &out, opts)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "completed")
	assert.Contains(t, out.String(), "x1")

	runs, err := filepath.Glob(filepath.Join(root, config.DefaultReportsDir, "runs", "*", config.RunReportFile))
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestAnalyzeMissingSource(t *testing.T) {
	root, opts := setup(t)
	require.NoError(t, os.Remove(filepath.Join(root, config.DefaultDataDir, "values.csv")))

	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", filepath.Join(root, "config.yaml"), "-root", root}, &out, opts)
	assert.ErrorContains(t, err, "source files missing")
}

func TestAnalyzeRejectsUnknownFamily(t *testing.T) {
	root, opts := setup(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", filepath.Join(root, "config.yaml"), "-root", root, "-families", "forest"}, &out, opts)
	assert.ErrorContains(t, err, "invalid options")
}

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &out, cli.Options{}))
	assert.Contains(t, out.String(), "analyze v")
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simon3728/Data-Analysis-Election/internal/cli"
	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

const verifyConfig = `
sources:
  - name: gdp
    path: gdp.csv
    format: csv
    state: {column: State}
    year: {column: Year}
    columns:
      - {name: gdp, type: float}
verify:
  states: [Alabama, Alaska]
  expect:
    - {indicator: gdp, years: [2000, 2004]}
  rules:
    - {kind: non_negative, indicator: gdp}
`

func setup(t *testing.T, data string) (string, []string, cli.Options) {
	t.Helper()
	root := t.TempDir()
	cfgPath := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(verifyConfig), 0o644))
	dataDir := filepath.Join(root, config.DefaultDataDir)
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "gdp.csv"), []byte(data), 0o644))
	args := []string{"-config", cfgPath, "-root", root}
	return root, args, cli.Options{Logger: infrastructure.NewLogger(io.Discard, "error")}
}

func readReport(t *testing.T, root string) *domain.VerificationReport {
	t.Helper()
	paths, err := config.GetPaths(config.PathsConfig{RootDir: root})
	require.NoError(t, err)
	data, err := os.ReadFile(paths.VerificationJSON)
	require.NoError(t, err)
	var report domain.VerificationReport
	require.NoError(t, json.Unmarshal(data, &report))
	return &report
}

func TestVerifyClean(t *testing.T) {
	root, args, opts := setup(t, "State,Year,gdp\nAlabama,2000,1\nAlabama,2004,2\nAlaska,2000,3\nAlaska,2004,4\n")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args, &out, opts))
	assert.Contains(t, out.String(), "1 indicators verified")

	report := readReport(t, root)
	assert.Empty(t, report.Gaps)
	assert.Empty(t, report.Findings)
}

func TestVerifyGapAndFinding(t *testing.T) {
	root, args, opts := setup(t, "State,Year,gdp\nAlabama,2000,1\nAlabama,2004,-2\nAlaska,2000,3\n")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args, &out, opts))
	assert.Contains(t, out.String(), "1 gaps, 1 findings")

	report := readReport(t, root)
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, domain.CoverageGap{Indicator: "gdp", State: "Alaska", Year: 2004}, report.Gaps[0])

	err := run(context.Background(), append(args, "-strict"), &out, opts)
	var gapErr *apperrors.CoverageGapError
	require.True(t, errors.As(err, &gapErr))
	assert.Len(t, gapErr.Gaps, 1)
}

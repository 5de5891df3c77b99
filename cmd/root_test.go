package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/dataset"
	"github.com/scan-io-git/triage/pkg/observation"
)

const datasetYAML = `
products:
  - id: 1
    name: api
    apply_general_rules: true
rules:
  - id: 10
    name: test code is low
    type: Fields
    enabled: true
    approval_status: Approved
    title: "^Test"
    new_severity: Low
observations:
  - id: 100
    product_id: 1
    parser: Semgrep
    scanner: semgrep
    title: Test credentials
    parser_severity: High
`

func TestExecute_ApplyThenGate(t *testing.T) {
	t.Setenv(config.ConfigEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.yml")
	out := filepath.Join(dir, "applied.yml")
	require.NoError(t, os.WriteFile(path, []byte(datasetYAML), 0o600))

	rootCmd.SetArgs([]string{"apply", "--dataset", path, "-o", out})
	require.Equal(t, 0, Execute())

	d, err := dataset.Load(out)
	require.NoError(t, err)
	require.Len(t, d.Observations, 1)
	assert.Equal(t, observation.SeverityLow, d.Observations[0].CurrentSeverity)
	require.NotNil(t, d.Products[0].SecurityGatePassed)
	assert.True(t, *d.Products[0].SecurityGatePassed)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"gate", "--dataset", path, "--fail"})
	assert.Equal(t, cmdutil.ExitGateFailed, Execute())
	assert.Equal(t, "api: failed\n", stdout.String())
}

func TestExecute_InvalidArgs(t *testing.T) {
	t.Setenv(config.ConfigEnv, "")
	rootCmd.SetArgs([]string{"simulate", "--dataset", filepath.Join(t.TempDir(), "missing.yml")})
	assert.Equal(t, cmdutil.ExitInvalidArgs, Execute())
}

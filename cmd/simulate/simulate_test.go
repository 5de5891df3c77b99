package simulate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/triage/pkg/observation"
)

func TestValidateSimulateArgs(t *testing.T) {
	dir := t.TempDir()
	dataset := filepath.Join(dir, "dataset.yml")
	rule := filepath.Join(dir, "rule.yml")
	require.NoError(t, os.WriteFile(dataset, []byte("products: []\n"), 0o600))
	require.NoError(t, os.WriteFile(rule, []byte("name: x\n"), 0o600))

	assert.NoError(t, validateSimulateArgs(&RunOptionsSimulate{Dataset: dataset, RulePath: rule}, nil))
	assert.EqualError(t, validateSimulateArgs(&RunOptionsSimulate{Dataset: dataset}, nil), "the 'rule' flag must be specified")
	assert.EqualError(t, validateSimulateArgs(&RunOptionsSimulate{Dataset: dataset, RulePath: rule, MaxObservations: -1}, nil), "the 'max' flag cannot be negative")
	assert.Error(t, validateSimulateArgs(&RunOptionsSimulate{Dataset: dataset, RulePath: filepath.Join(dir, "missing.yml")}, nil))
}

func TestPrintMatches(t *testing.T) {
	sample := []*observation.Observation{
		{ID: 7, ProductID: 1, Title: "Test credentials", CurrentSeverity: observation.SeverityLow, CurrentStatus: observation.StatusOpen},
	}
	var out bytes.Buffer
	printMatches(&out, newResult(3, sample))

	assert.Equal(t, "Matching observations: 3\n  #7 [product 1] Test credentials: Low / Open\n  ... 2 more\n", out.String())
}

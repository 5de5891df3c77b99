package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRule = `
name: lower test findings
type: Fields
title: "^Test"
new_severity: Low
`

const brokenRule = `
name: broken
type: Rego
rego_module: "package x\nrule := {"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateRules(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.yml", validRule)
	broken := writeFile(t, dir, "broken.yml", brokenRule)
	dataset := writeFile(t, dir, "dataset.yml", "products: []\nrules:\n  - name: no body\n    type: Fields\n")

	checked, err := validateRules(ctx, "", []string{valid})
	require.NoError(t, err)
	assert.Equal(t, 1, checked)

	checked, err = validateRules(ctx, dataset, []string{valid, broken})
	require.Error(t, err)
	assert.Equal(t, 3, checked)
	assert.Contains(t, err.Error(), `rule "no body" is invalid`)
	assert.Contains(t, err.Error(), `rule "broken" is invalid`)

	_, err = validateRules(ctx, "", []string{filepath.Join(dir, "missing.yml")})
	assert.ErrorContains(t, err, "reading rule")
}

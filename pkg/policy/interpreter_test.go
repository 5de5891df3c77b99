package policy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const severityModule = `package rule

severity = "High" {
	startswith(input.title, "Test")
}

priority = 2 {
	input.parser == "Semgrep"
}
`

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(context.Background(), "package rule\n\nseverity = {")
	require.Error(t, err)

	var compileErr *CompileError
	assert.True(t, errors.As(err, &compileErr))
}

func TestQuery(t *testing.T) {
	interpreter, err := Compile(context.Background(), severityModule)
	require.NoError(t, err)

	tests := []struct {
		name         string
		document     map[string]interface{}
		wantSeverity string
		wantPriority *int
		wantMatch    bool
	}{
		{
			name:     "nothing defined",
			document: map[string]interface{}{"title": "Other"},
		},
		{
			name:         "severity only",
			document:     map[string]interface{}{"title": "Test X"},
			wantSeverity: "High",
			wantMatch:    true,
		},
		{
			name:         "both",
			document:     map[string]interface{}{"title": "Test X", "parser": "Semgrep"},
			wantSeverity: "High",
			wantPriority: intPtr(2),
			wantMatch:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := interpreter.Query(context.Background(), tt.document)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSeverity, result.Severity)
			assert.Equal(t, tt.wantPriority, result.Priority)
			assert.Empty(t, result.Status)
			assert.Equal(t, tt.wantMatch, result.Matched())
		})
	}
}

func TestQuery_OtherRulesKept(t *testing.T) {
	interpreter, err := Compile(context.Background(), "package rule\n\nstatus = \"Not affected\"\n\nreason = \"vendor\"\n")
	require.NoError(t, err)

	result, err := interpreter.Query(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "Not affected", result.Status)
	assert.Equal(t, "vendor", result.Other["reason"])
}

func TestQuery_WrongPackage(t *testing.T) {
	interpreter, err := Compile(context.Background(), "package other\n\nseverity = \"High\"\n")
	require.NoError(t, err)

	_, err = interpreter.Query(context.Background(), map[string]interface{}{})
	var queryErr *QueryError
	require.True(t, errors.As(err, &queryErr))
	assert.ErrorIs(t, err, ErrNoRuleElement)
}

func TestDecodeOutput(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		wantErr error
	}{
		{name: "not an object", value: "x", wantErr: ErrNoRuleElement},
		{name: "no rule", value: map[string]interface{}{"other": map[string]interface{}{}}, wantErr: ErrNoRuleElement},
		{name: "null rule", value: map[string]interface{}{"rule": nil}, wantErr: ErrNoRuleElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeOutput(tt.value)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeOutput_WeakPriority(t *testing.T) {
	result, err := decodeOutput(map[string]interface{}{
		"rule": map[string]interface{}{"priority": json.Number("3"), "severity": "Low"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Priority)
	assert.Equal(t, 3, *result.Priority)
	assert.Equal(t, "Low", result.Severity)
}

func TestResult_Matched(t *testing.T) {
	assert.False(t, Result{}.Matched())
	assert.False(t, Result{Priority: intPtr(0)}.Matched())
	assert.True(t, Result{Priority: intPtr(1)}.Matched())
	assert.True(t, Result{VEXJustification: "component_not_present"}.Matched())
}

func TestFlatten(t *testing.T) {
	type doc struct {
		Title    string `json:"title"`
		Empty    string `json:"empty"`
		Missing  *int   `json:"missing"`
		Port     *int   `json:"port"`
		Disabled bool   `json:"disabled"`
	}

	document, err := Flatten(doc{Title: "t", Port: intPtr(443)})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"title":    "t",
		"port":     json.Number("443"),
		"disabled": false,
	}, document)
}

func intPtr(i int) *int { return &i }

// Package policy evaluates policy-module rules written in Rego.
//
// A module must declare `package rule`. Its rules priority, severity, status and
// vex_justification, when defined for the input document, become the Result.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/open-policy-agent/opa/rego"
)

const (
	moduleName   = "rule"
	queryData    = "data"
	outputMember = "rule"
)

// Result is the output of one policy module for one document.
type Result struct {
	Priority         *int   `mapstructure:"priority"`
	Severity         string `mapstructure:"severity"`
	Status           string `mapstructure:"status"`
	VEXJustification string `mapstructure:"vex_justification"`

	// Other holds any further rules the module defines.
	Other map[string]interface{} `mapstructure:",remain"`
}

// Matched reports whether the module produced any of the values the rule engine applies.
// A priority of 0 counts as unset.
func (r Result) Matched() bool {
	return (r.Priority != nil && *r.Priority != 0) || r.Severity != "" || r.Status != "" || r.VEXJustification != ""
}

// Evaluator queries a compiled policy module.
type Evaluator interface {
	Query(ctx context.Context, document map[string]interface{}) (Result, error)
}

// Interpreter is a compiled policy module. It is not modified after Compile and may be
// queried concurrently.
type Interpreter struct {
	source   string
	prepared rego.PreparedEvalQuery
}

// Compile builds the module into a reusable query. A syntactically or semantically
// invalid module returns a *CompileError.
func Compile(ctx context.Context, source string) (*Interpreter, error) {
	prepared, err := rego.New(
		rego.Query(queryData),
		rego.Module(moduleName, source),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	return &Interpreter{source: source, prepared: prepared}, nil
}

// Source returns the module text the interpreter was compiled from.
func (i *Interpreter) Source() string {
	return i.source
}

// Query evaluates the module with document as input. Any unusable output is a
// *QueryError, never an empty Result.
func (i *Interpreter) Query(ctx context.Context, document map[string]interface{}) (Result, error) {
	rs, err := i.prepared.Eval(ctx, rego.EvalInput(document))
	if err != nil {
		return Result{}, &QueryError{Err: err}
	}
	if len(rs) == 0 {
		return Result{}, &QueryError{Err: ErrNoResults}
	}
	if len(rs[0].Expressions) == 0 {
		return Result{}, &QueryError{Err: ErrNoExpressions}
	}
	return decodeOutput(rs[0].Expressions[0].Value)
}

func decodeOutput(value interface{}) (Result, error) {
	data, ok := value.(map[string]interface{})
	if !ok {
		return Result{}, &QueryError{Err: ErrNoRuleElement}
	}
	output, ok := data[outputMember]
	if !ok || output == nil {
		return Result{}, &QueryError{Err: ErrNoRuleElement}
	}

	var result Result
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &result,
	})
	if err != nil {
		return Result{}, &QueryError{Err: err}
	}
	if err := decoder.Decode(output); err != nil {
		return Result{}, &QueryError{Err: fmt.Errorf("decoding %q: %w", outputMember, err)}
	}
	return result, nil
}

// Flatten converts v into the document handed to policy modules: its JSON object
// representation without null and empty string members.
func Flatten(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var document map[string]interface{}
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	for k, v := range document {
		if v == nil || v == "" {
			delete(document, k)
		}
	}
	return document, nil
}

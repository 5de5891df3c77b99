package rules

import "fmt"

// PatternError is returned when a field pattern of a rule is not a valid regular expression.
type PatternError struct {
	Rule    string
	Field   string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("rule %q: invalid %s pattern %q: %v", e.Rule, e.Field, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// RuleValidationError is returned by ValidateRule.
type RuleValidationError struct {
	Rule string
	Err  error
}

func (e *RuleValidationError) Error() string {
	return fmt.Sprintf("rule %q is invalid: %v", e.Rule, e.Err)
}

func (e *RuleValidationError) Unwrap() error {
	return e.Err
}

// SimulationError wraps any failure of a dry run. Nothing is applied when it is returned.
type SimulationError struct {
	Rule string
	Err  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation of rule %q failed: %v", e.Rule, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

package policy

import (
	"errors"
	"fmt"
)

// Reasons a query result cannot be used.
var (
	ErrNoResults     = errors.New("policy output has no results")
	ErrNoExpressions = errors.New("policy results have no expressions")
	ErrNoRuleElement = errors.New("policy expressions have no 'rule' element")
)

// CompileError is returned when a policy module cannot be built.
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("error while building policy bundle: %v", e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// QueryError is returned when evaluating a compiled policy module fails or yields an
// unusable result. Err is one of the Err* sentinels or the runtime error.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("error while querying policy module: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

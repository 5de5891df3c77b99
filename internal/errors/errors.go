package errors

import (
	"encoding/json"
	"io"
)

// CommandResult is printed as JSON when a command runs with --json.
type CommandResult struct {
	Command string      `json:"command"`
	Args    interface{} `json:"args"`
	Result  interface{} `json:"result"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
}

// CommandError represents a failed command, storing its exit code and result.
type CommandError struct {
	ExitCode    int
	CommonError string
	Result      CommandResult
	err         error
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

func (e *CommandError) Unwrap() error {
	return e.err
}

// NewCommandError creates a new CommandError instance, encapsulating args, result, and the error message.
func NewCommandError(command string, args interface{}, result interface{}, err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Result: CommandResult{
			Command: command,
			Args:    args,
			Result:  result,
			Status:  "FAILED",
			Message: err.Error(),
		},
		err: err,
	}
}

// PrintResultAsJSON writes r indented to w.
func PrintResultAsJSON(w io.Writer, r CommandResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

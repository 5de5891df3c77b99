package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/errors"
	"github.com/scan-io-git/triage/internal/triager"
)

// Exit codes of the commands.
const (
	ExitInvalidArgs   = 1
	ExitCommandFailed = 2
	ExitGateFailed    = 3
)

// GlobalOptions are the persistent flags of the root command.
type GlobalOptions struct {
	User string
	JSON bool
}

// ValidateDatasetPath checks that the dataset flag points to an existing file.
func ValidateDatasetPath(path string) error {
	if path == "" {
		return fmt.Errorf("the 'dataset' flag must be specified")
	}
	if err := config.ValidateConfigPath(path); err != nil {
		return fmt.Errorf("invalid dataset path: %w", err)
	}
	return nil
}

// LoadTriager builds a Triager and loads the dataset at path into it.
func LoadTriager(ctx context.Context, cfg *config.Config, logger hclog.Logger, globals *GlobalOptions, path string) (*triager.Triager, error) {
	t := triager.New(cfg, logger, triager.Options{User: globals.User})
	if err := t.LoadDataset(ctx, path); err != nil {
		return nil, err
	}
	return t, nil
}

// PrintResult writes a successful result as JSON when --json is set.
func PrintResult(w io.Writer, globals *GlobalOptions, command string, args interface{}, result interface{}) {
	if !globals.JSON {
		return
	}
	r := errors.CommandResult{Command: command, Args: args, Result: result, Status: "OK"}
	if err := errors.PrintResultAsJSON(w, r); err != nil {
		fmt.Fprintf(os.Stderr, "error serializing JSON result: %v\n", err)
	}
}

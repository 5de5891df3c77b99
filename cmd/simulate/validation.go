package simulate

import (
	"fmt"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
)

// validateSimulateArgs validates the arguments provided to the simulate command.
func validateSimulateArgs(options *RunOptionsSimulate, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected positional arguments: %v", args)
	}
	if err := cmdutil.ValidateDatasetPath(options.Dataset); err != nil {
		return err
	}
	if options.RulePath == "" {
		return fmt.Errorf("the 'rule' flag must be specified")
	}
	if err := config.ValidateConfigPath(options.RulePath); err != nil {
		return fmt.Errorf("invalid rule path: %w", err)
	}
	if options.MaxObservations < 0 {
		return fmt.Errorf("the 'max' flag cannot be negative")
	}
	return nil
}

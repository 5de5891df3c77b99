package importcmd

import (
	"fmt"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
)

// validateImportArgs validates the arguments provided to the import command.
func validateImportArgs(options *RunOptionsImport, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected positional arguments: %v", args)
	}
	if err := cmdutil.ValidateDatasetPath(options.Dataset); err != nil {
		return err
	}
	if options.ProductID <= 0 {
		return fmt.Errorf("the 'product' flag must be specified")
	}
	if options.Observations == "" {
		return fmt.Errorf("the 'observations' flag must be specified")
	}
	if err := config.ValidateConfigPath(options.Observations); err != nil {
		return fmt.Errorf("invalid observations path: %w", err)
	}
	return nil
}

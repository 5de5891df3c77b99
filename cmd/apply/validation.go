package apply

import (
	"fmt"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
)

// validateApplyArgs validates the arguments provided to the apply command.
func validateApplyArgs(options *RunOptionsApply, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected positional arguments: %v", args)
	}
	if err := cmdutil.ValidateDatasetPath(options.Dataset); err != nil {
		return err
	}
	if options.ProductID < 0 {
		return fmt.Errorf("the 'product' flag must be a positive id")
	}
	return nil
}

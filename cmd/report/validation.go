package report

import (
	"fmt"
	"slices"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/pkg/observation"
)

var statuses = []string{
	observation.StatusOpen,
	observation.StatusResolved,
	observation.StatusDuplicate,
	observation.StatusFalsePositive,
	observation.StatusInReview,
	observation.StatusNotAffected,
	observation.StatusNotSecurity,
	observation.StatusRiskAccepted,
}

// validateReportArgs validates the arguments provided to the report command.
func validateReportArgs(options *RunOptionsReport, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected positional arguments: %v", args)
	}
	if err := cmdutil.ValidateDatasetPath(options.Dataset); err != nil {
		return err
	}
	if options.ProductID < 0 {
		return fmt.Errorf("the 'product' flag must be a positive id")
	}
	if options.Status != "" && !slices.Contains(statuses, options.Status) {
		return fmt.Errorf("the 'status' flag must be one of %v", statuses)
	}
	return nil
}

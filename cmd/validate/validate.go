package validate

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/dataset"
	"github.com/scan-io-git/triage/internal/errors"
	"github.com/scan-io-git/triage/pkg/rules"
)

// RunOptionsValidate holds the arguments of the validate command.
type RunOptionsValidate struct {
	Dataset string   `json:"dataset,omitempty"`
	Rules   []string `json:"rules,omitempty"`
}

var (
	AppConfig       *config.Config
	logger          hclog.Logger
	globals         *cmdutil.GlobalOptions
	validateOptions RunOptionsValidate

	exampleValidateUsage = `  # Check the configuration and every rule of a dataset
  triage --config config.yml validate --dataset dataset.yml

  # Check candidate rule files before adding them
  triage validate rule-a.yml rule-b.yml`
)

// ValidateCmd checks the configuration, the rules of a dataset and rule files.
var ValidateCmd = &cobra.Command{
	Use:                   "validate [--dataset PATH] [RULE_FILE...]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleValidateUsage,
	Short:                 "Validate the configuration and rules",
	RunE:                  runValidateCommand,
}

// Init initializes the global configuration variables of the command.
func Init(cfg *config.Config, l hclog.Logger, g *cmdutil.GlobalOptions) {
	AppConfig = cfg
	logger = l
	globals = g
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	validateOptions.Rules = args
	if validateOptions.Dataset != "" {
		if err := cmdutil.ValidateDatasetPath(validateOptions.Dataset); err != nil {
			logger.Error("invalid validate arguments", "error", err)
			return errors.NewCommandError("validate", validateOptions, nil, fmt.Errorf("invalid validate arguments: %w", err), cmdutil.ExitInvalidArgs)
		}
	}

	if err := config.ValidateConfig(AppConfig); err != nil {
		logger.Error("invalid configuration", "error", err)
		return errors.NewCommandError("validate", validateOptions, nil, err, cmdutil.ExitCommandFailed)
	}

	checked, err := validateRules(cmd.Context(), validateOptions.Dataset, validateOptions.Rules)
	if err != nil {
		logger.Error("validate command failed", "error", err)
		return errors.NewCommandError("validate", validateOptions, checked, err, cmdutil.ExitCommandFailed)
	}

	logger.Info("validate command completed successfully", "rules", checked)
	cmdutil.PrintResult(cmd.OutOrStdout(), globals, "validate", validateOptions, checked)
	return nil
}

// validateRules checks the rules of the dataset and every rule file. It returns the
// number of rules checked and the aggregate of all problems.
func validateRules(ctx context.Context, datasetPath string, rulePaths []string) (int, error) {
	checked := 0
	var errs []error

	if datasetPath != "" {
		d, err := dataset.Load(datasetPath)
		if err != nil {
			return 0, err
		}
		checked += len(d.Rules)
		if err := d.ValidateRules(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	for _, path := range rulePaths {
		r := &rules.Rule{}
		if err := config.LoadYAML(path, r); err != nil {
			errs = append(errs, fmt.Errorf("reading rule %q: %w", path, err))
			continue
		}
		checked++
		if err := rules.ValidateRule(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return checked, utilerrors.Flatten(utilerrors.NewAggregate(errs))
}

func init() {
	ValidateCmd.Flags().StringVar(&validateOptions.Dataset, "dataset", "", "Path to the dataset file whose rules are checked.")
	ValidateCmd.Flags().BoolP("help", "h", false, "Show help for the validate command.")
}

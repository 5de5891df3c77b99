package apply

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/errors"
)

// RunOptionsApply holds the arguments of the apply command.
type RunOptionsApply struct {
	Dataset   string `json:"dataset"`
	ProductID int    `json:"product_id,omitempty"`
	Output    string `json:"output,omitempty"`
	Metrics   bool   `json:"metrics,omitempty"`
}

// Result is the outcome of an apply run.
type Result struct {
	Products     int `json:"products"`
	Observations int `json:"observations"`
	Changed      int `json:"changed"`
	Errors       int `json:"errors"`
}

var (
	AppConfig    *config.Config
	logger       hclog.Logger
	globals      *cmdutil.GlobalOptions
	applyOptions RunOptionsApply

	exampleApplyUsage = `  # Apply the rules of product 4 and write the result back
  triage apply --dataset dataset.yml --product 4 -o dataset.yml

  # Re-apply the rules of all products and print the rule metrics
  triage apply --dataset dataset.yml --metrics`
)

// ApplyCmd applies the rules to the observations of one or all products.
var ApplyCmd = &cobra.Command{
	Use:                   "apply --dataset PATH [--product ID] [--output/-o PATH] [--metrics]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleApplyUsage,
	Short:                 "Apply field and policy rules to observations",
	RunE:                  runApplyCommand,
}

// Init initializes the global configuration variables of the command.
func Init(cfg *config.Config, l hclog.Logger, g *cmdutil.GlobalOptions) {
	AppConfig = cfg
	logger = l
	globals = g
}

func runApplyCommand(cmd *cobra.Command, args []string) error {
	if err := validateApplyArgs(&applyOptions, args); err != nil {
		logger.Error("invalid apply arguments", "error", err)
		return errors.NewCommandError("apply", applyOptions, nil, fmt.Errorf("invalid apply arguments: %w", err), cmdutil.ExitInvalidArgs)
	}

	ctx := cmd.Context()
	t, err := cmdutil.LoadTriager(ctx, AppConfig, logger, globals, applyOptions.Dataset)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		return errors.NewCommandError("apply", applyOptions, nil, err, cmdutil.ExitCommandFailed)
	}

	summary, applyErr := t.ApplyRules(ctx, applyOptions.ProductID)
	result := Result{
		Products:     summary.Products,
		Observations: summary.Observations,
		Changed:      summary.Changed,
		Errors:       len(summary.Errors),
	}

	if applyOptions.Output != "" {
		if err := t.WriteDataset(ctx, applyOptions.Output); err != nil {
			logger.Error("failed to write dataset", "error", err)
			return errors.NewCommandError("apply", applyOptions, result, err, cmdutil.ExitCommandFailed)
		}
		logger.Info("dataset saved to file", "path", applyOptions.Output)
	}

	if applyOptions.Metrics {
		if err := t.Metrics.WriteSummary(cmd.OutOrStdout()); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}

	if applyErr != nil {
		logger.Error("apply command failed", "error", applyErr)
		return errors.NewCommandError("apply", applyOptions, result, fmt.Errorf("apply command failed: %w", applyErr), cmdutil.ExitCommandFailed)
	}

	logger.Info("apply command completed successfully",
		"products", result.Products, "observations", result.Observations, "changed", result.Changed)
	cmdutil.PrintResult(cmd.OutOrStdout(), globals, "apply", applyOptions, result)
	return nil
}

func init() {
	ApplyCmd.Flags().StringVar(&applyOptions.Dataset, "dataset", "", "Path to the dataset file with products, rules and observations.")
	ApplyCmd.Flags().IntVar(&applyOptions.ProductID, "product", 0, "ID of the product or product group to apply the rules of. All products if omitted.")
	ApplyCmd.Flags().StringVarP(&applyOptions.Output, "output", "o", "", "Path to write the resulting dataset to.")
	ApplyCmd.Flags().BoolVar(&applyOptions.Metrics, "metrics", false, "Print the rule and security gate counters after the run.")
	ApplyCmd.Flags().BoolP("help", "h", false, "Show help for the apply command.")
}

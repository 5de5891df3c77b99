package gate

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/errors"
	"github.com/scan-io-git/triage/pkg/product"
)

// RunOptionsGate holds the arguments of the gate command.
type RunOptionsGate struct {
	Dataset    string `json:"dataset"`
	ProductID  int    `json:"product_id,omitempty"`
	Output     string `json:"output,omitempty"`
	FailOnGate bool   `json:"fail_on_gate,omitempty"`
}

// ProductGate is the gate result of one product. Passed is nil when the gate is disabled.
type ProductGate struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Passed *bool  `json:"passed"`
}

var (
	AppConfig   *config.Config
	logger      hclog.Logger
	globals     *cmdutil.GlobalOptions
	gateOptions RunOptionsGate

	exampleGateUsage = `  # Recompute the security gates of all products
  triage gate --dataset dataset.yml

  # Recompute the gate of product 4 and exit with code 3 if it failed
  triage gate --dataset dataset.yml --product 4 --fail`
)

// GateCmd recomputes security gates.
var GateCmd = &cobra.Command{
	Use:                   "gate --dataset PATH [--product ID] [--output/-o PATH] [--fail]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleGateUsage,
	Short:                 "Recompute the security gates of products",
	RunE:                  runGateCommand,
}

// Init initializes the global configuration variables of the command.
func Init(cfg *config.Config, l hclog.Logger, g *cmdutil.GlobalOptions) {
	AppConfig = cfg
	logger = l
	globals = g
}

func runGateCommand(cmd *cobra.Command, args []string) error {
	if err := validateGateArgs(&gateOptions, args); err != nil {
		logger.Error("invalid gate arguments", "error", err)
		return errors.NewCommandError("gate", gateOptions, nil, fmt.Errorf("invalid gate arguments: %w", err), cmdutil.ExitInvalidArgs)
	}

	ctx := cmd.Context()
	t, err := cmdutil.LoadTriager(ctx, AppConfig, logger, globals, gateOptions.Dataset)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		return errors.NewCommandError("gate", gateOptions, nil, err, cmdutil.ExitCommandFailed)
	}

	checked, err := t.CheckGates(ctx, gateOptions.ProductID)
	if err != nil {
		logger.Error("gate command failed", "error", err)
		return errors.NewCommandError("gate", gateOptions, nil, fmt.Errorf("gate command failed: %w", err), cmdutil.ExitCommandFailed)
	}
	results := toResults(checked)

	if gateOptions.Output != "" {
		if err := t.WriteDataset(ctx, gateOptions.Output); err != nil {
			logger.Error("failed to write dataset", "error", err)
			return errors.NewCommandError("gate", gateOptions, results, err, cmdutil.ExitCommandFailed)
		}
		logger.Info("dataset saved to file", "path", gateOptions.Output)
	}

	if globals.JSON {
		cmdutil.PrintResult(cmd.OutOrStdout(), globals, "gate", gateOptions, results)
	} else {
		printResults(cmd.OutOrStdout(), results)
	}

	if failed := failedProducts(results); gateOptions.FailOnGate && len(failed) > 0 {
		return errors.NewCommandError("gate", gateOptions, results, fmt.Errorf("security gate failed for %v", failed), cmdutil.ExitGateFailed)
	}
	logger.Info("gate command completed successfully", "products", len(results))
	return nil
}

func toResults(products []*product.Product) []ProductGate {
	results := make([]ProductGate, 0, len(products))
	for _, p := range products {
		results = append(results, ProductGate{ID: p.ID, Name: p.Name, Passed: p.SecurityGatePassed})
	}
	return results
}

func failedProducts(results []ProductGate) []string {
	var failed []string
	for _, r := range results {
		if r.Passed != nil && !*r.Passed {
			failed = append(failed, r.Name)
		}
	}
	return failed
}

func printResults(w io.Writer, results []ProductGate) {
	for _, r := range results {
		state := "disabled"
		if r.Passed != nil {
			state = "failed"
			if *r.Passed {
				state = "passed"
			}
		}
		fmt.Fprintf(w, "%s: %s\n", r.Name, state)
	}
}

func init() {
	GateCmd.Flags().StringVar(&gateOptions.Dataset, "dataset", "", "Path to the dataset file with products, rules and observations.")
	GateCmd.Flags().IntVar(&gateOptions.ProductID, "product", 0, "ID of the product or product group to check. All products if omitted.")
	GateCmd.Flags().StringVarP(&gateOptions.Output, "output", "o", "", "Path to write the resulting dataset to.")
	GateCmd.Flags().BoolVar(&gateOptions.FailOnGate, "fail", false, "Exit with code 3 if a security gate failed.")
	GateCmd.Flags().BoolP("help", "h", false, "Show help for the gate command.")
}

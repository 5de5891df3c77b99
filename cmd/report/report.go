package report

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/errors"
	"github.com/scan-io-git/triage/internal/sarif"
	"github.com/scan-io-git/triage/pkg/observation"
)

// RunOptionsReport holds the arguments of the report command.
type RunOptionsReport struct {
	Dataset   string `json:"dataset"`
	ProductID int    `json:"product_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Output    string `json:"output,omitempty"`
}

var (
	AppConfig     *config.Config
	logger        hclog.Logger
	globals       *cmdutil.GlobalOptions
	reportOptions RunOptionsReport

	exampleReportUsage = `  # Export all open observations of product 4 as SARIF
  triage report --dataset dataset.yml --product 4 --status Open -o product-4.sarif`
)

// ReportCmd exports observations as a SARIF report.
var ReportCmd = &cobra.Command{
	Use:                   "report --dataset PATH [--product ID] [--status STATUS] [--output/-o PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleReportUsage,
	Short:                 "Export observations as a SARIF report",
	RunE:                  runReportCommand,
}

// Init initializes the global configuration variables of the command.
func Init(cfg *config.Config, l hclog.Logger, g *cmdutil.GlobalOptions) {
	AppConfig = cfg
	logger = l
	globals = g
}

func runReportCommand(cmd *cobra.Command, args []string) error {
	if err := validateReportArgs(&reportOptions, args); err != nil {
		logger.Error("invalid report arguments", "error", err)
		return errors.NewCommandError("report", reportOptions, nil, fmt.Errorf("invalid report arguments: %w", err), cmdutil.ExitInvalidArgs)
	}

	ctx := cmd.Context()
	t, err := cmdutil.LoadTriager(ctx, AppConfig, logger, globals, reportOptions.Dataset)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		return errors.NewCommandError("report", reportOptions, nil, err, cmdutil.ExitCommandFailed)
	}

	filter := observation.Filter{Status: reportOptions.Status}
	if reportOptions.ProductID != 0 {
		filter.ProductIDs = []int{reportOptions.ProductID}
	}
	observations, err := t.Store.ListObservations(ctx, filter)
	if err != nil {
		logger.Error("failed to list observations", "error", err)
		return errors.NewCommandError("report", reportOptions, nil, err, cmdutil.ExitCommandFailed)
	}

	if err := writeReport(cmd.OutOrStdout(), reportOptions.Output, observations); err != nil {
		logger.Error("report command failed", "error", err)
		return errors.NewCommandError("report", reportOptions, nil, fmt.Errorf("report command failed: %w", err), cmdutil.ExitCommandFailed)
	}
	logger.Info("report command completed successfully", "observations", len(observations))
	if reportOptions.Output != "" {
		logger.Info("results saved to file", "path", reportOptions.Output)
	}
	return nil
}

func writeReport(stdout io.Writer, path string, observations []*observation.Observation) error {
	if path == "" {
		return sarif.WriteReport(stdout, observations)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := sarif.WriteReport(file, observations); err != nil {
		return err
	}
	return file.Close()
}

func init() {
	ReportCmd.Flags().StringVar(&reportOptions.Dataset, "dataset", "", "Path to the dataset file with products, rules and observations.")
	ReportCmd.Flags().IntVar(&reportOptions.ProductID, "product", 0, "ID of the product to export. All products if omitted.")
	ReportCmd.Flags().StringVar(&reportOptions.Status, "status", "", "Export only observations with this current status.")
	ReportCmd.Flags().StringVarP(&reportOptions.Output, "output", "o", "", "Path to the SARIF file. Defaults to stdout.")
	ReportCmd.Flags().BoolP("help", "h", false, "Show help for the report command.")
}

package importcmd

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/errors"
)

// RunOptionsImport holds the arguments of the import command.
type RunOptionsImport struct {
	Dataset      string `json:"dataset"`
	ProductID    int    `json:"product_id"`
	Observations string `json:"observations"`
	Output       string `json:"output,omitempty"`
}

// Result is the outcome of an import.
type Result struct {
	Observations int `json:"observations"`
	Changed      int `json:"changed"`
	Errors       int `json:"errors"`
}

var (
	AppConfig     *config.Config
	logger        hclog.Logger
	globals       *cmdutil.GlobalOptions
	importOptions RunOptionsImport

	exampleImportUsage = `  # Import parsed observations into product 4 and update the dataset in place
  triage import --dataset dataset.yml --product 4 --observations scan.yml

  # Write the result to another file
  triage import --dataset dataset.yml --product 4 --observations scan.yml -o imported.yml`
)

// ImportCmd imports parsed observations into a product.
var ImportCmd = &cobra.Command{
	Use:                   "import --dataset PATH --product ID --observations PATH [--output/-o PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleImportUsage,
	Short:                 "Import observations into a product and apply its rules",
	RunE:                  runImportCommand,
}

// Init initializes the global configuration variables of the command.
func Init(cfg *config.Config, l hclog.Logger, g *cmdutil.GlobalOptions) {
	AppConfig = cfg
	logger = l
	globals = g
}

func runImportCommand(cmd *cobra.Command, args []string) error {
	if err := validateImportArgs(&importOptions, args); err != nil {
		logger.Error("invalid import arguments", "error", err)
		return errors.NewCommandError("import", importOptions, nil, fmt.Errorf("invalid import arguments: %w", err), cmdutil.ExitInvalidArgs)
	}

	ctx := cmd.Context()
	t, err := cmdutil.LoadTriager(ctx, AppConfig, logger, globals, importOptions.Dataset)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		return errors.NewCommandError("import", importOptions, nil, err, cmdutil.ExitCommandFailed)
	}

	summary, importErr := t.ImportObservations(ctx, importOptions.ProductID, importOptions.Observations)
	result := Result{Observations: summary.Observations, Changed: summary.Changed, Errors: len(summary.Errors)}

	output := importOptions.Output
	if output == "" {
		output = importOptions.Dataset
	}
	if err := t.WriteDataset(ctx, output); err != nil {
		logger.Error("failed to write dataset", "error", err)
		return errors.NewCommandError("import", importOptions, result, err, cmdutil.ExitCommandFailed)
	}

	if importErr != nil {
		logger.Error("import command failed", "error", importErr)
		return errors.NewCommandError("import", importOptions, result, fmt.Errorf("import command failed: %w", importErr), cmdutil.ExitCommandFailed)
	}

	logger.Info("import command completed successfully", "observations", result.Observations, "changed", result.Changed)
	logger.Info("dataset saved to file", "path", output)
	cmdutil.PrintResult(cmd.OutOrStdout(), globals, "import", importOptions, result)
	return nil
}

func init() {
	ImportCmd.Flags().StringVar(&importOptions.Dataset, "dataset", "", "Path to the dataset file with products, rules and observations.")
	ImportCmd.Flags().IntVar(&importOptions.ProductID, "product", 0, "ID of the product the observations belong to.")
	ImportCmd.Flags().StringVar(&importOptions.Observations, "observations", "", "Path to a YAML file with the observations to import.")
	ImportCmd.Flags().StringVarP(&importOptions.Output, "output", "o", "", "Path to write the resulting dataset to. Defaults to the dataset file.")
	ImportCmd.Flags().BoolP("help", "h", false, "Show help for the import command.")
}

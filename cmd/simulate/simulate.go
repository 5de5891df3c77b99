package simulate

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/errors"
	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/rules"
)

// RunOptionsSimulate holds the arguments of the simulate command.
type RunOptionsSimulate struct {
	Dataset         string `json:"dataset"`
	RulePath        string `json:"rule"`
	MaxObservations int    `json:"max_observations,omitempty"`
}

// Match is one observation the candidate rule would change.
type Match struct {
	ID               int    `json:"id"`
	ProductID        int    `json:"product_id"`
	Title            string `json:"title"`
	Severity         string `json:"severity"`
	Status           string `json:"status"`
	VEXJustification string `json:"vex_justification,omitempty"`
	Priority         *int   `json:"priority,omitempty"`
}

// Result is the outcome of a simulation.
type Result struct {
	Count   int     `json:"count"`
	Matches []Match `json:"matches"`
}

var (
	AppConfig       *config.Config
	logger          hclog.Logger
	globals         *cmdutil.GlobalOptions
	simulateOptions RunOptionsSimulate

	exampleSimulateUsage = `  # Preview which observations a candidate rule would change
  triage simulate --dataset dataset.yml --rule candidate.yml

  # Return at most 10 sample observations as JSON
  triage --json simulate --dataset dataset.yml --rule candidate.yml --max 10`
)

// SimulateCmd previews a candidate rule without changing anything.
var SimulateCmd = &cobra.Command{
	Use:                   "simulate --dataset PATH --rule PATH [--max N]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleSimulateUsage,
	Short:                 "Preview the effect of a candidate rule",
	RunE:                  runSimulateCommand,
}

// Init initializes the global configuration variables of the command.
func Init(cfg *config.Config, l hclog.Logger, g *cmdutil.GlobalOptions) {
	AppConfig = cfg
	logger = l
	globals = g
}

func runSimulateCommand(cmd *cobra.Command, args []string) error {
	if err := validateSimulateArgs(&simulateOptions, args); err != nil {
		logger.Error("invalid simulate arguments", "error", err)
		return errors.NewCommandError("simulate", simulateOptions, nil, fmt.Errorf("invalid simulate arguments: %w", err), cmdutil.ExitInvalidArgs)
	}

	candidate := &rules.Rule{}
	if err := config.LoadYAML(simulateOptions.RulePath, candidate); err != nil {
		logger.Error("failed to read rule", "path", simulateOptions.RulePath, "error", err)
		return errors.NewCommandError("simulate", simulateOptions, nil, fmt.Errorf("reading rule: %w", err), cmdutil.ExitInvalidArgs)
	}

	ctx := cmd.Context()
	t, err := cmdutil.LoadTriager(ctx, AppConfig, logger, globals, simulateOptions.Dataset)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		return errors.NewCommandError("simulate", simulateOptions, nil, err, cmdutil.ExitCommandFailed)
	}

	count, sample, err := t.Simulate(ctx, candidate, simulateOptions.MaxObservations)
	if err != nil {
		logger.Error("simulate command failed", "error", err)
		return errors.NewCommandError("simulate", simulateOptions, nil, err, cmdutil.ExitCommandFailed)
	}

	result := newResult(count, sample)
	logger.Info("simulate command completed successfully", "rule", candidate.Name, "matches", count)
	if globals.JSON {
		cmdutil.PrintResult(cmd.OutOrStdout(), globals, "simulate", simulateOptions, result)
		return nil
	}
	printMatches(cmd.OutOrStdout(), result)
	return nil
}

func newResult(count int, sample []*observation.Observation) Result {
	result := Result{Count: count, Matches: make([]Match, 0, len(sample))}
	for _, o := range sample {
		result.Matches = append(result.Matches, Match{
			ID:               o.ID,
			ProductID:        o.ProductID,
			Title:            o.Title,
			Severity:         o.CurrentSeverity,
			Status:           o.CurrentStatus,
			VEXJustification: o.CurrentVEXJustification,
			Priority:         o.CurrentPriority,
		})
	}
	return result
}

func printMatches(w io.Writer, result Result) {
	fmt.Fprintf(w, "Matching observations: %d\n", result.Count)
	for _, m := range result.Matches {
		fmt.Fprintf(w, "  #%d [product %d] %s: %s / %s\n", m.ID, m.ProductID, m.Title, m.Severity, m.Status)
	}
	if len(result.Matches) < result.Count {
		fmt.Fprintf(w, "  ... %d more\n", result.Count-len(result.Matches))
	}
}

func init() {
	SimulateCmd.Flags().StringVar(&simulateOptions.Dataset, "dataset", "", "Path to the dataset file with products, rules and observations.")
	SimulateCmd.Flags().StringVar(&simulateOptions.RulePath, "rule", "", "Path to a YAML file with the candidate rule.")
	SimulateCmd.Flags().IntVar(&simulateOptions.MaxObservations, "max", 0, "Maximum number of sample observations. Defaults to simulation.max_observations.")
	SimulateCmd.Flags().BoolP("help", "h", false, "Show help for the simulate command.")
}

package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/triage/cmd/apply"
	"github.com/scan-io-git/triage/cmd/gate"
	importcmd "github.com/scan-io-git/triage/cmd/import"
	"github.com/scan-io-git/triage/cmd/report"
	"github.com/scan-io-git/triage/cmd/simulate"
	"github.com/scan-io-git/triage/cmd/validate"
	"github.com/scan-io-git/triage/cmd/version"
	"github.com/scan-io-git/triage/internal/ci"
	cmdutil "github.com/scan-io-git/triage/internal/cmd"
	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/errors"
	"github.com/scan-io-git/triage/internal/logger"
)

var (
	cfgFile   string
	globals   cmdutil.GlobalOptions
	AppConfig *config.Config
	Logger    hclog.Logger
	rootCmd   = &cobra.Command{
		Use:                   "triage [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Triage applies rules and security gates to security observations.",
		Long: `Triage normalizes security observations, applies field and policy rules to them,
	previews candidate rules and computes the security gate of every product.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $%s)", config.ConfigEnv))
	rootCmd.PersistentFlags().StringVar(&globals.User, "user", "", "User recorded on audit entries and notifications. Defaults to the CI actor.")
	rootCmd.PersistentFlags().BoolVar(&globals.JSON, "json", false, "Print the command result as JSON.")

	rootCmd.AddCommand(apply.ApplyCmd)
	rootCmd.AddCommand(simulate.SimulateCmd)
	rootCmd.AddCommand(gate.GateCmd)
	rootCmd.AddCommand(importcmd.ImportCmd)
	rootCmd.AddCommand(report.ReportCmd)
	rootCmd.AddCommand(validate.ValidateCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)

		var cmdErr *errors.CommandError
		if stderrors.As(err, &cmdErr) {
			if globals.JSON {
				if err := errors.PrintResultAsJSON(os.Stdout, cmdErr.Result); err != nil {
					fmt.Fprintf(os.Stderr, "error serializing JSON result: %v\n", err)
				}
			}
			return cmdErr.ExitCode
		}
		return cmdutil.ExitInvalidArgs
	}
	return 0
}

func initConfig() {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing config file function is crashed - %v \n", err)
		os.Exit(cmdutil.ExitInvalidArgs)
	}

	Logger = logger.NewLogger(AppConfig, "core")
	if globals.User == "" {
		globals.User = ci.Actor()
	}

	apply.Init(AppConfig, Logger.Named("apply"), &globals)
	simulate.Init(AppConfig, Logger.Named("simulate"), &globals)
	gate.Init(AppConfig, Logger.Named("gate"), &globals)
	importcmd.Init(AppConfig, Logger.Named("import"), &globals)
	report.Init(AppConfig, Logger.Named("report"), &globals)
	validate.Init(AppConfig, Logger.Named("validate"), &globals)
	version.Init(AppConfig)
}

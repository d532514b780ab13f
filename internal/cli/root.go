// Package cli implements the stocksim command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// NewRootCommand builds the stocksim command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "stocksim",
		Short: "A toy stock market simulator",
		Long: `stocksim simulates a small stock market. Prices follow a bounded random
walk, each instrument keeps a rolling price history, and a single cash
balance buys and sells shares.

Configuration comes from defaults, an optional YAML or JSON file, and
environment variables (PORT, TICK_INTERVAL, INITIAL_CASH, ...).`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a config file (YAML or JSON); defaults to $CONFIG_FILE")

	root.AddCommand(
		newServeCommand(opts),
		newSimulateCommand(opts),
		newHealthcheckCommand(opts),
	)
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actionflow",
		Short: "Run and inspect asynchronous action lifecycles",
		Long: `actionflow drives named actions through their lifecycle:
a trigger starts a run, failed attempts are retried with backoff, and
every phase is reflected in the action's status.

Examples:
  actionflow simulate --fail-times 2 --max-attempts 3
  actionflow simulate --triggers 3 --strategy every --latency 200ms
  actionflow validate actionflow.yaml`,
		SilenceUsage: true,
	}

	cmd.AddCommand(simulateCmd())
	cmd.AddCommand(validateCmd())
	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

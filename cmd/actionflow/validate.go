package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jzx17/actionflow/internal/config"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(args[0])
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", color.New(color.FgRed).Sprint("INVALID"), err)
				return err
			}

			settings, err := f.Settings()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen).Sprint("OK"), args[0])
			fmt.Fprintf(out, "  default strategy:    %s\n", settings.DefaultStrategy)
			fmt.Fprintf(out, "  default reset delay: %s\n", settings.DefaultResetDelay)
			fmt.Fprintf(out, "  max concurrent runs: %s\n", concurrency(settings.MaxConcurrentRuns))

			names := make([]string, 0, len(f.Actions))
			for name := range f.Actions {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  action %s\n", color.New(color.FgCyan).Sprint(name))
			}
			return nil
		},
	}
}

func concurrency(n int) string {
	if n == 0 {
		return "unbounded"
	}
	return fmt.Sprint(n)
}

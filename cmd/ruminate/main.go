package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/ruminate/cmd/ruminate/internal/commands"
)

var rootCmd = &cobra.Command{
	Use:   "ruminate",
	Short: "Iterative self-critique reasoning from the command line",
	Long: `ruminate runs a task through the generate -> critique -> refine loop and
prints the refined solution together with the stopping decision.

Completed thinking chains can be archived to a local SQLite database and
inspected later with the chains subcommands.`,
	Version: "0.1.0",
}

func main() {
	rootCmd.AddCommand(commands.NewThinkCommand())
	rootCmd.AddCommand(commands.NewChainsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

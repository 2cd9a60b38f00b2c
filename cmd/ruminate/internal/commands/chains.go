package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/ruminate/pkg/thinking/store"
)

func NewChainsCommand() *cobra.Command {
	var archivePath string

	cmd := &cobra.Command{
		Use:   "chains",
		Short: "Inspect archived thinking chains",
	}
	cmd.PersistentFlags().StringVar(&archivePath, "archive", "chains.db", "path to the SQLite archive")

	list := &cobra.Command{
		Use:   "list",
		Short: "List archived chains, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewSQLiteStore(archivePath)
			if err != nil {
				return err
			}
			defer s.Close()

			summaries, err := s.List(cmd.Context(), 50)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("no archived chains")
				return nil
			}

			idColor := color.New(color.FgCyan)
			for _, summary := range summaries {
				idColor.Print(summary.ID)
				fmt.Printf("  %s  (%d steps, %d tokens, %s)\n",
					summary.Task, summary.Steps, summary.TotalTokens, summary.CompletedAt)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <chain-id>",
		Short: "Print the steps of an archived chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewSQLiteStore(archivePath)
			if err != nil {
				return err
			}
			defer s.Close()

			chain, err := s.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			header := color.New(color.Bold)
			header.Printf("%s (%d cycles, %d tokens)\n", chain.Task, chain.CurrentCycle, chain.TotalTokens)

			typeColor := color.New(color.FgYellow)
			for _, step := range chain.Steps {
				fmt.Printf("[%d] ", step.Cycle)
				typeColor.Printf("%-12s", step.Type)
				fmt.Printf(" %.2f  %s\n", step.Confidence, step.Content)
			}

			if len(chain.Branches) > 0 {
				header.Println("\nExplored branches")
				for _, branch := range chain.Branches {
					score := 0.0
					if branch.Score != nil {
						score = *branch.Score
					}
					fmt.Printf("%s  score %.2f\n", branch.Strategy, score)
				}
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <chain-id>",
		Short: "Remove an archived chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewSQLiteStore(archivePath)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Delete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/ruminate/pkg/config"
	"github.com/XiaoConstantine/ruminate/pkg/llms"
	"github.com/XiaoConstantine/ruminate/pkg/logging"
	"github.com/XiaoConstantine/ruminate/pkg/thinking"
	"github.com/XiaoConstantine/ruminate/pkg/thinking/store"
)

var strategyNames = map[string]thinking.Strategy{
	"algorithms":    thinking.StrategyDifferentAlgorithms,
	"libraries":     thinking.StrategyDifferentLibraries,
	"architectures": thinking.StrategyDifferentArchitectures,
	"optimism":      thinking.StrategyOptimisticVsCautious,
	"simplicity":    thinking.StrategySimpleVsComplex,
}

func NewThinkCommand() *cobra.Command {
	var (
		configPath  string
		modelName   string
		maxCycles   int
		visibility  string
		exploreFlag string
		archivePath string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "think <task>",
		Short: "Run the refinement loop on a task",
		Example: `  # Refine a task with the defaults
  ruminate think "Design a rate limiter for a public API"

  # Explore three strategies first, then refine the synthesis
  ruminate think --explore algorithms,libraries,architectures "Design a cache"

  # Archive the finished chain for later inspection
  ruminate think --archive chains.db "Pick a serialization format"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := args[0]

			logging.SetLogger(logging.NewLogger(logging.Config{
				Severity: logging.ParseSeverity(strings.ToUpper(logLevel)),
				Outputs:  []logging.Output{logging.NewConsoleOutput(true)},
			}))

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-cycles") {
				cfg.MaxCycles = maxCycles
			}
			if cmd.Flags().Changed("visibility") {
				cfg.ThinkingVisibility = thinking.Visibility(visibility)
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			llm, err := llms.NewAnthropicLLM("", llms.ResolveModel(modelName))
			if err != nil {
				return err
			}

			progress := color.New(color.FgCyan)
			observer := thinking.ObserverFuncs{
				CycleComplete: func(state thinking.IterationState) {
					progress.Fprintf(os.Stderr, "cycle %d: quality %.2f, confidence %.2f, tokens %d\n",
						state.Cycle, state.Quality, state.Confidence, state.TokensUsed)
				},
			}
			orch := thinking.NewOrchestrator(llm, *cfg, thinking.WithObserver(observer))

			var result *thinking.Result
			if exploreFlag != "" {
				strategies, err := parseStrategies(exploreFlag)
				if err != nil {
					return err
				}
				result, err = orch.ThinkWithExploration(cmd.Context(), task, strategies)
				if err != nil {
					return err
				}
			} else {
				result, err = orch.Think(cmd.Context(), task)
				if err != nil {
					return err
				}
			}

			printResult(result)

			if archivePath != "" {
				if err := archiveChain(archivePath, result); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVarP(&modelName, "model", "m", "sonnet", "model: haiku, sonnet, or opus")
	cmd.Flags().IntVar(&maxCycles, "max-cycles", 0, "override the cycle budget")
	cmd.Flags().StringVar(&visibility, "visibility", "", "chain visibility: none, summary, or full")
	cmd.Flags().StringVar(&exploreFlag, "explore", "",
		"comma-separated strategies to explore first: "+strings.Join(knownStrategies(), ", "))
	cmd.Flags().StringVar(&archivePath, "archive", "", "SQLite file to archive the finished chain to")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, or error")

	return cmd
}

func loadConfig(path string) (*thinking.Config, error) {
	if path == "" {
		cfg := thinking.DefaultConfig()
		return &cfg, nil
	}
	return config.Load(path)
}

func parseStrategies(raw string) ([]thinking.Strategy, error) {
	var strategies []thinking.Strategy
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		strategy, ok := strategyNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q (known: %s)", name, strings.Join(knownStrategies(), ", "))
		}
		strategies = append(strategies, strategy)
	}
	return strategies, nil
}

func knownStrategies() []string {
	names := make([]string, 0, len(strategyNames))
	for name := range strategyNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printResult(result *thinking.Result) {
	header := color.New(color.Bold)
	header.Println("Solution")
	fmt.Println(result.Solution)
	fmt.Println()

	dim := color.New(color.Faint)
	dim.Printf("stopped: %s after %d cycles (quality %.2f, confidence %.2f, %d tokens",
		result.StoppingReason, result.Iterations, result.Quality, result.Confidence, result.TokensUsed)
	if result.ResearchPerformed > 0 {
		dim.Printf(", %d research queries", result.ResearchPerformed)
	}
	dim.Println(")")
}

func archiveChain(path string, result *thinking.Result) error {
	if result.Chain == nil {
		fmt.Fprintln(os.Stderr, "nothing to archive: thinking_visibility is none")
		return nil
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Save(context.Background(), result.Chain); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "archived chain %s to %s\n", result.Chain.ID, path)
	return nil
}

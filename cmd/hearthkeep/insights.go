package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthkeep/hearthkeep/internal/cli"
	"github.com/hearthkeep/hearthkeep/internal/insight"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

func insightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Generate and manage household insights",
		Long: `Insights surface patterns in categorized documents: recurring
vendors, spending summaries, upcoming dates, and AI-flagged anomalies.
Run 'generate' after categorizing to refresh them.`,
	}

	cmd.AddCommand(insightsGenerateCmd())
	cmd.AddCommand(insightsListCmd())
	cmd.AddCommand(insightsStatusCmd("dismiss", "Dismiss an insight", (*insight.Manager).Dismiss, "Insight dismissed"))
	cmd.AddCommand(insightsStatusCmd("resolve", "Mark an insight as acted on", (*insight.Manager).Resolve, "Insight resolved"))
	cmd.AddCommand(insightsStatusCmd("unresolve", "Return an insight to the active list", (*insight.Manager).Reactivate, "Insight reactivated"))
	cmd.AddCommand(insightsSweepCmd())
	return cmd
}

func insightsGenerateCmd() *cobra.Command {
	var noAI bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the insight detectors over categorized documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cfg := insightConfig()

			var extractor service.Extractor
			if cfg.AnalysisEnabled && !noAI {
				ex, err := initExtractor()
				if err != nil {
					return err
				}
				defer ex.Close()
				extractor = ex
			}

			engine := insight.NewEngine(store, extractor, cfg, nil)
			stats, err := engine.Generate(ctx)
			if err != nil {
				return err
			}

			msg := fmt.Sprintf("Generated %d new insights, refreshed %d", stats.Created, stats.Refreshed)
			if stats.DetectorErrors > 0 {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("%s (%d detector errors, see logs)", msg, stats.DetectorErrors)))
				return nil
			}
			fmt.Println(cli.FormatSuccess(msg))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noAI, "no-ai", false, "skip the LLM analysis pass")
	return cmd
}

func insightsListCmd() *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show active insights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			manager := insight.NewManager(store, dismissedRetention(), nil)
			formatter := insight.NewFormatter()

			if summary {
				rows, err := manager.Overview(ctx)
				if err != nil {
					return err
				}
				fmt.Println(formatter.FormatOverview(rows))
				return nil
			}

			insights, err := manager.Active(ctx)
			if err != nil {
				return err
			}
			fmt.Println(formatter.FormatList(insights))
			return nil
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "show per-category counts instead of the full list")
	return cmd
}

func insightsStatusCmd(use, short string, action func(*insight.Manager, context.Context, string) error, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <insight-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			manager := insight.NewManager(store, dismissedRetention(), nil)
			if err := action(manager, ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(done))
			return nil
		},
	}
}

func insightsSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale insights",
		Long: `Delete expired insights and dismissed insights past the retention
window. Generate runs do not sweep automatically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			manager := insight.NewManager(store, dismissedRetention(), nil)
			swept, err := manager.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Swept %d insights", swept)))
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hearthkeep/hearthkeep/internal/cli"
	"github.com/hearthkeep/hearthkeep/internal/pipeline"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Extract facts and categorize pending documents",
		Long: `Run every pending document through the pipeline: extract facts with
the configured LLM, link it to a household entity, and assign a life
admin category. Corrections you made earlier are fed back to the
classifier as examples.

With --review, each AI-assigned category is shown for you to accept,
correct, or skip before it is saved.`,
		RunE: runCategorize,
	}

	cmd.Flags().Bool("review", false, "interactively confirm each assigned category")
	return cmd
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	review, _ := cmd.Flags().GetBool("review")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	extractor, err := initExtractor()
	if err != nil {
		return err
	}
	defer extractor.Close()

	var prompter pipeline.ReviewPrompter
	if review {
		prompter = cli.NewPrompter(os.Stdin, os.Stdout)
	}

	p := pipeline.New(store, extractor, initResolver(store), prompter, pipelineConfig(), nil)

	// The bar and the interactive prompt fight over the terminal.
	if !review {
		var bar *progressbar.ProgressBar
		p.OnProgress(func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Categorizing"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		})
	}

	stats, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Processed %d documents: %d categorized, %d corrected, %d skipped, %d failed",
		stats.Processed, stats.Categorized, stats.Corrected, stats.Skipped, stats.Failed)))
	if stats.Suggested > 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf(
			"%d new entity suggestions await review (hearthkeep entities suggestions)", stats.Suggested)))
	}
	return nil
}

func correctCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correct <document-id> <category>",
		Short: "Override the category assigned to a document",
		Long: `Change a document's category. The override is recorded in the
correction log and used as an example on future categorization runs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			// Corrections only touch storage; no LLM client needed.
			p := pipeline.New(store, nil, nil, nil, pipelineConfig(), nil)
			if err := p.Correct(ctx, args[0], args[1]); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Document %s recategorized as %s", args[0], args[1])))
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hearthkeep/hearthkeep/internal/cli"
	"github.com/hearthkeep/hearthkeep/internal/model"
)

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Add documents from extracted text files",
		Long: `Store one or more documents from plain text files. Each file's
contents are stored as the document text and the basename becomes the
filename. Run 'hearthkeep categorize' afterwards to process them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			for _, path := range args {
				text, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}

				doc := &model.Document{
					ID:         uuid.NewString(),
					Filename:   filepath.Base(path),
					Text:       string(text),
					CapturedAt: time.Now().UTC(),
				}
				if err := store.SaveDocument(ctx, doc); err != nil {
					return fmt.Errorf("saving %s: %w", path, err)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s (%s)", doc.Filename, doc.ID)))
			}
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthkeep/hearthkeep/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required tables,
indexes, the seeded category taxonomy and the shared household entity.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.FormatSuccess("Database is up to date"))
			return nil
		},
	}
}

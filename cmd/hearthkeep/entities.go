package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hearthkeep/hearthkeep/internal/cli"
	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/storage"
)

func entitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Manage household entities",
		Long: `List and manage the people, vehicles, pets, and properties that
documents are attributed to. The resolver proposes new entities as
suggestions; approve the ones that are real.`,
	}

	cmd.AddCommand(entitiesListCmd())
	cmd.AddCommand(entitiesAddCmd())
	cmd.AddCommand(entitiesSuggestionsCmd())
	cmd.AddCommand(entitiesApproveCmd())
	cmd.AddCommand(entitiesRejectCmd())
	return cmd
}

func entitiesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entities, err := store.GetActiveEntities(ctx)
			if err != nil {
				return err
			}
			if len(entities) == 0 {
				fmt.Println(cli.FormatInfo("No entities yet. Add one with 'hearthkeep entities add'."))
				return nil
			}

			fmt.Println(cli.FormatTitle("Entities"))
			for _, e := range entities {
				docs, err := store.CountLinkedDocuments(ctx, e.ID)
				if err != nil {
					return err
				}
				line := fmt.Sprintf("  %-10s %-24s", e.Type, e.Name)
				if e.Identifier != "" {
					line += " " + cli.SubtleStyle.Render(e.Identifier)
				}
				line += cli.SubtleStyle.Render(fmt.Sprintf("  %d documents", docs))
				fmt.Println(line)
			}
			return nil
		},
	}
}

func entitiesAddCmd() *cobra.Command {
	var (
		identifier string
		owner      string
	)
	cmd := &cobra.Command{
		Use:   "add <type> <name>",
		Short: "Add an entity",
		Long: `Create an entity directly. Type is one of: person, vehicle, pet,
property, business. Use --identifier for a registration plate, an
address, or similar, and --owner to link the entity to another one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entityType := model.EntityType(args[0])
			if !entityType.IsValid() || entityType == model.EntityTypeHousehold {
				return fmt.Errorf("%w: unknown entity type %q", common.ErrInvalidConfig, args[0])
			}

			entity := &model.Entity{
				ID:         uuid.NewString(),
				Type:       entityType,
				Name:       args[1],
				Identifier: identifier,
				OwnerID:    owner,
				IsActive:   true,
			}
			if err := store.CreateEntity(ctx, entity); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s %q (%s)", entity.Type, entity.Name, entity.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&identifier, "identifier", "", "registration plate, address, or other identifier")
	cmd.Flags().StringVar(&owner, "owner", "", "ID of the owning entity")
	return cmd
}

func entitiesSuggestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions",
		Short: "List pending entity suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			suggestions, err := store.GetPendingSuggestions(ctx)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Println(cli.FormatInfo("No pending suggestions."))
				return nil
			}

			fmt.Println(cli.FormatTitle("Pending entity suggestions"))
			for _, s := range suggestions {
				line := fmt.Sprintf("  %s  %-10s %-24s", s.ID, s.Type, s.Name)
				if s.Identifier != "" {
					line += " " + cli.SubtleStyle.Render(s.Identifier)
				}
				fmt.Println(line)
			}
			fmt.Println(cli.FormatInfo("Approve with 'hearthkeep entities approve <id>' or reject with 'reject <id>'."))
			return nil
		},
	}
}

func entitiesApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <suggestion-id>",
		Short: "Approve a suggestion, creating the entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entity, err := approveSuggestion(ctx, store, args[0])
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s %q from suggestion", entity.Type, entity.Name)))
			return nil
		},
	}
}

func approveSuggestion(ctx context.Context, store *storage.SQLiteStorage, id string) (*model.Entity, error) {
	suggestion, err := store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}

	entity := &model.Entity{
		ID:         uuid.NewString(),
		Type:       suggestion.Type,
		Name:       suggestion.Name,
		Identifier: suggestion.Identifier,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.CreateEntity(ctx, entity); err != nil {
		return nil, err
	}
	if err := store.ResolveSuggestion(ctx, id, model.SuggestionApproved); err != nil {
		return nil, err
	}
	return entity, nil
}

func entitiesRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <suggestion-id>",
		Short: "Reject a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ResolveSuggestion(ctx, args[0], model.SuggestionRejected); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Suggestion rejected"))
			return nil
		},
	}
}

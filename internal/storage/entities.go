package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
)

// householdEntityID is the stable ID of the shared fallback entity seeded
// by migration. Exactly one exists per household database.
const householdEntityID = "household"

// maxOwnerDepth bounds owner-chain walks; a longer chain indicates a bug.
const maxOwnerDepth = 16

// CreateEntity inserts a new entity. Duplicate type+identifier pairs,
// unknown owner references and owner cycles are integrity violations and
// are rejected loudly.
func (s *SQLiteStorage) CreateEntity(ctx context.Context, entity *model.Entity) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntity(entity); err != nil {
		return err
	}

	norm := normalizeIdentifier(entity.Identifier)
	if norm != "" {
		var existing string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM entities WHERE entity_type = ? AND identifier_norm = ?`,
			entity.Type, norm,
		).Scan(&existing)
		if err == nil {
			return fmt.Errorf("%w: %s %q", common.ErrDuplicateEntity, entity.Type, entity.Identifier)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check for duplicate entity: %w", err)
		}
	}

	if entity.OwnerID != "" {
		if err := s.checkOwnerChain(ctx, entity.ID, entity.OwnerID); err != nil {
			return err
		}
	}

	metadata, err := marshalMetadata(entity.Metadata)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, entity_type, name, identifier, identifier_norm, metadata, owner_id, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID, entity.Type, entity.Name, entity.Identifier, norm, metadata,
		nullable(entity.OwnerID), entity.IsActive, entity.CreatedAt, entity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}

	slog.Info("created entity", "id", entity.ID, "type", entity.Type, "name", entity.Name)
	return nil
}

// UpdateEntity updates an existing entity. The household entity cannot be
// deactivated or retyped.
func (s *SQLiteStorage) UpdateEntity(ctx context.Context, entity *model.Entity) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntity(entity); err != nil {
		return err
	}

	current, err := s.GetEntity(ctx, entity.ID)
	if err != nil {
		return err
	}

	if current.Type == model.EntityTypeHousehold && (!entity.IsActive || entity.Type != model.EntityTypeHousehold) {
		return common.ErrProtectedEntity
	}

	if entity.OwnerID != "" {
		if err := s.checkOwnerChain(ctx, entity.ID, entity.OwnerID); err != nil {
			return err
		}
	}

	metadata, err := marshalMetadata(entity.Metadata)
	if err != nil {
		return err
	}

	entity.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE entities
		 SET entity_type = ?, name = ?, identifier = ?, identifier_norm = ?, metadata = ?, owner_id = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		entity.Type, entity.Name, entity.Identifier, normalizeIdentifier(entity.Identifier),
		metadata, nullable(entity.OwnerID), entity.IsActive, entity.UpdatedAt, entity.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	return nil
}

// GetEntity returns a single entity by ID.
func (s *SQLiteStorage) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, entity_type, name, identifier, metadata, owner_id, is_active, created_at, updated_at
		 FROM entities WHERE id = ?`, id)

	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	return entity, nil
}

// GetActiveEntities returns all active entities.
func (s *SQLiteStorage) GetActiveEntities(ctx context.Context) ([]model.Entity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_type, name, identifier, metadata, owner_id, is_active, created_at, updated_at
		 FROM entities WHERE is_active = 1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []model.Entity
	for rows.Next() {
		entity, scanErr := scanEntity(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", scanErr)
		}
		entities = append(entities, *entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entities: %w", err)
	}
	return entities, nil
}

// GetHouseholdEntity returns the shared household fallback entity.
func (s *SQLiteStorage) GetHouseholdEntity(ctx context.Context) (*model.Entity, error) {
	return s.GetEntity(ctx, householdEntityID)
}

// CountLinkedDocuments returns how many documents are linked to an entity.
func (s *SQLiteStorage) CountLinkedDocuments(ctx context.Context, entityID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM summaries WHERE entity_id = ?`, entityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count linked documents: %w", err)
	}
	return count, nil
}

// checkOwnerChain verifies the owner exists and the chain from it never
// reaches back to entityID.
func (s *SQLiteStorage) checkOwnerChain(ctx context.Context, entityID, ownerID string) error {
	current := ownerID
	for depth := 0; depth < maxOwnerDepth; depth++ {
		if current == entityID {
			return fmt.Errorf("%w: %s", common.ErrOwnerCycle, entityID)
		}

		var next sql.NullString
		err := s.db.QueryRowContext(ctx,
			`SELECT owner_id FROM entities WHERE id = ?`, current).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: owner %s", common.ErrUnknownReference, current)
		}
		if err != nil {
			return fmt.Errorf("failed to walk owner chain: %w", err)
		}

		if !next.Valid || next.String == "" {
			return nil
		}
		current = next.String
	}
	return fmt.Errorf("%w: chain from %s exceeds depth %d", common.ErrOwnerCycle, ownerID, maxOwnerDepth)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*model.Entity, error) {
	var entity model.Entity
	var identifier, metadata, ownerID sql.NullString
	if err := row.Scan(
		&entity.ID, &entity.Type, &entity.Name, &identifier, &metadata,
		&ownerID, &entity.IsActive, &entity.CreatedAt, &entity.UpdatedAt,
	); err != nil {
		return nil, err
	}

	entity.Identifier = identifier.String
	entity.OwnerID = ownerID.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &entity.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode entity metadata: %w", err)
		}
	}
	return &entity, nil
}

func marshalMetadata(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode entity metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// normalizeIdentifier canonicalizes an identifier for uniqueness checks:
// case-folded with punctuation and whitespace stripped.
func normalizeIdentifier(identifier string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(identifier) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
)

// SaveSuggestion records a proposed entity for manual review. A pending
// suggestion with the same type and identifier is not duplicated.
func (s *SQLiteStorage) SaveSuggestion(ctx context.Context, suggestion *model.EntitySuggestion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if suggestion == nil {
		return fmt.Errorf("%w: suggestion", ErrNilParameter)
	}
	if suggestion.ID == "" || suggestion.Name == "" {
		return fmt.Errorf("%w: suggestion needs an ID and a name", ErrInvalidEntity)
	}
	if !suggestion.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntity, suggestion.Type)
	}

	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM entity_suggestions
		 WHERE status = 'pending' AND entity_type = ? AND LOWER(identifier) = LOWER(?)`,
		suggestion.Type, suggestion.Identifier,
	).Scan(&existing)
	if err == nil {
		// Already queued for review
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for existing suggestion: %w", err)
	}

	if suggestion.CreatedAt.IsZero() {
		suggestion.CreatedAt = time.Now().UTC()
	}
	if suggestion.Status == "" {
		suggestion.Status = model.SuggestionPending
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entity_suggestions (id, document_id, entity_type, name, identifier, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		suggestion.ID, suggestion.DocumentID, suggestion.Type, suggestion.Name,
		suggestion.Identifier, suggestion.Status, suggestion.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	return nil
}

// GetPendingSuggestions returns suggestions awaiting review, oldest first.
func (s *SQLiteStorage) GetPendingSuggestions(ctx context.Context) ([]model.EntitySuggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, entity_type, name, identifier, status, created_at, resolved_at
		 FROM entity_suggestions
		 WHERE status = 'pending'
		 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var suggestions []model.EntitySuggestion
	for rows.Next() {
		suggestion, scanErr := scanSuggestion(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", scanErr)
		}
		suggestions = append(suggestions, *suggestion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}
	return suggestions, nil
}

// GetSuggestion returns a single suggestion by ID.
func (s *SQLiteStorage) GetSuggestion(ctx context.Context, id string) (*model.EntitySuggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, entity_type, name, identifier, status, created_at, resolved_at
		 FROM entity_suggestions WHERE id = ?`, id)

	suggestion, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("suggestion %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestion: %w", err)
	}
	return suggestion, nil
}

// ResolveSuggestion marks a suggestion approved or rejected.
func (s *SQLiteStorage) ResolveSuggestion(ctx context.Context, id string, status model.SuggestionStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if status != model.SuggestionApproved && status != model.SuggestionRejected {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE entity_suggestions SET status = ?, resolved_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve suggestion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolve result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("suggestion %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func scanSuggestion(row rowScanner) (*model.EntitySuggestion, error) {
	var suggestion model.EntitySuggestion
	var documentID, identifier sql.NullString
	var resolvedAt sql.NullTime
	if err := row.Scan(
		&suggestion.ID, &documentID, &suggestion.Type, &suggestion.Name,
		&identifier, &suggestion.Status, &suggestion.CreatedAt, &resolvedAt,
	); err != nil {
		return nil, err
	}
	suggestion.DocumentID = documentID.String
	suggestion.Identifier = identifier.String
	if resolvedAt.Valid {
		suggestion.ResolvedAt = &resolvedAt.Time
	}
	return &suggestion, nil
}

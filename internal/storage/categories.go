package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// GetCategories returns all active categories.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, is_active, created_at
		 FROM categories
		 WHERE is_active = 1
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		var description sql.NullString
		if err := rows.Scan(&cat.ID, &cat.Name, &description, &cat.IsActive, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cat.Description = description.String
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByName returns a category by its name, or nil when not found.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var cat model.Category
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, is_active, created_at
		 FROM categories
		 WHERE name = ? AND is_active = 1`, name,
	).Scan(&cat.ID, &cat.Name, &description, &cat.IsActive, &cat.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	cat.Description = description.String
	return &cat, nil
}

// CreateCategory adds a new category to the taxonomy, reactivating a
// previously retired category of the same name if one exists.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var existing model.Category
	var existingDesc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, is_active, created_at FROM categories WHERE name = ?`, name,
	).Scan(&existing.ID, &existing.Name, &existingDesc, &existing.IsActive, &existing.CreatedAt)

	switch {
	case err == nil:
		if existing.IsActive {
			existing.Description = existingDesc.String
			return &existing, nil
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE categories SET is_active = 1, description = ? WHERE id = ?`,
			description, existing.ID,
		); err != nil {
			return nil, fmt.Errorf("failed to reactivate category: %w", err)
		}
		existing.IsActive = true
		existing.Description = description
		return &existing, nil
	case errors.Is(err, sql.ErrNoRows):
		// Fall through to insert
	default:
		return nil, fmt.Errorf("failed to check for existing category: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, description) VALUES (?, ?)`, name, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	slog.Info("created category", "name", name)
	return s.getCategoryByID(ctx, int(id))
}

func (s *SQLiteStorage) getCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	var cat model.Category
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, is_active, created_at FROM categories WHERE id = ?`, id,
	).Scan(&cat.ID, &cat.Name, &description, &cat.IsActive, &cat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query category %d: %w", id, err)
	}
	cat.Description = description.String
	return &cat, nil
}

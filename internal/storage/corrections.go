package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// AppendCorrection records a user category override. The log is
// append-only; nothing in the pipeline ever deletes from it.
func (s *SQLiteStorage) AppendCorrection(ctx context.Context, correction *model.CategoryCorrection) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCorrection(correction); err != nil {
		return err
	}

	if correction.CorrectedAt.IsZero() {
		correction.CorrectedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO category_corrections (id, document_id, filename, document_type, vendor, old_category, new_category, corrected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		correction.ID, correction.DocumentID, correction.Filename,
		correction.DocumentType, correction.Vendor,
		correction.OldCategory, correction.NewCategory, correction.CorrectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append correction: %w", err)
	}
	return nil
}

// GetRecentCorrections returns the most recent corrections, newest first,
// capped at limit.
func (s *SQLiteStorage) GetRecentCorrections(ctx context.Context, limit int) ([]model.CategoryCorrection, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 15
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, filename, document_type, vendor, old_category, new_category, corrected_at
		 FROM category_corrections
		 ORDER BY corrected_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var corrections []model.CategoryCorrection
	for rows.Next() {
		var c model.CategoryCorrection
		var documentID, filename, docType, vendor, oldCategory sql.NullString
		if err := rows.Scan(
			&c.ID, &documentID, &filename, &docType, &vendor,
			&oldCategory, &c.NewCategory, &c.CorrectedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		c.DocumentID = documentID.String
		c.Filename = filename.String
		c.DocumentType = docType.String
		c.Vendor = vendor.String
		c.OldCategory = oldCategory.String
		corrections = append(corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corrections: %w", err)
	}
	return corrections, nil
}

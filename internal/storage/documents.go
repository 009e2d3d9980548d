package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

// SaveDocument inserts a document, ignoring duplicates by ID so re-ingesting
// the same capture is a no-op.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *model.Document) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents (id, filename, text, captured_at) VALUES (?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.Text, doc.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument returns a single document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var doc model.Document
	var text sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, text, captured_at FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Filename, &text, &doc.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	doc.Text = text.String
	return &doc, nil
}

// GetDocumentsToCategorize returns documents that have no category yet,
// oldest first.
func (s *SQLiteStorage) GetDocumentsToCategorize(ctx context.Context) ([]model.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.filename, d.text, d.captured_at
		 FROM documents d
		 LEFT JOIN summaries s ON d.id = s.document_id
		 WHERE s.category IS NULL OR s.category = ''
		 ORDER BY d.captured_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		var text sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Filename, &text, &doc.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Text = text.String
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// SaveSummary inserts or replaces the derived annotations for a document.
func (s *SQLiteStorage) SaveSummary(ctx context.Context, summary *model.Summary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("%w: summary", ErrNilParameter)
	}
	if summary.DocumentID == "" {
		return fmt.Errorf("%w: missing document ID", ErrInvalidDocument)
	}

	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = time.Now().UTC()
	}
	if summary.Status == "" {
		summary.Status = model.StatusUncategorized
	}

	var amount sql.NullFloat64
	if summary.Amount != nil {
		amount = sql.NullFloat64{Float64: *summary.Amount, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (document_id, document_type, vendor, date_raw, amount, summary_text, category, status, entity_id, entity_confidence, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET
			document_type = excluded.document_type,
			vendor = excluded.vendor,
			date_raw = excluded.date_raw,
			amount = excluded.amount,
			summary_text = excluded.summary_text,
			category = excluded.category,
			status = excluded.status,
			entity_id = excluded.entity_id,
			entity_confidence = excluded.entity_confidence,
			generated_at = excluded.generated_at`,
		summary.DocumentID, summary.DocumentType, summary.Vendor, summary.DateRaw,
		amount, summary.Text, summary.Category, summary.Status,
		nullable(summary.EntityID), summary.EntityConfidence, summary.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// GetSummary returns the derived annotations for a document, or
// common.ErrNotFound when none exist yet.
func (s *SQLiteStorage) GetSummary(ctx context.Context, documentID string) (*model.Summary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(documentID, "documentID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, document_type, vendor, date_raw, amount, summary_text, category, status, entity_id, entity_confidence, generated_at
		 FROM summaries WHERE document_id = ?`, documentID)

	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary for %s: %w", documentID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	return summary, nil
}

// GetAnnotatedByCategory returns every document in a category together with
// its summary, newest capture first.
func (s *SQLiteStorage) GetAnnotatedByCategory(ctx context.Context, category string) ([]service.AnnotatedDocument, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(category, "category"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.filename, d.text, d.captured_at,
		        s.document_id, s.document_type, s.vendor, s.date_raw, s.amount, s.summary_text, s.category, s.status, s.entity_id, s.entity_confidence, s.generated_at
		 FROM documents d
		 JOIN summaries s ON d.id = s.document_id
		 WHERE s.category = ?
		 ORDER BY d.captured_at DESC`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotated documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var annotated []service.AnnotatedDocument
	for rows.Next() {
		var doc model.Document
		var text sql.NullString
		var summary model.Summary
		var docType, vendor, dateRaw, summaryText, cat, entityID sql.NullString
		var amount sql.NullFloat64
		var generatedAt sql.NullTime

		if err := rows.Scan(
			&doc.ID, &doc.Filename, &text, &doc.CapturedAt,
			&summary.DocumentID, &docType, &vendor, &dateRaw, &amount,
			&summaryText, &cat, &summary.Status, &entityID,
			&summary.EntityConfidence, &generatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan annotated document: %w", err)
		}

		doc.Text = text.String
		summary.DocumentType = docType.String
		summary.Vendor = vendor.String
		summary.DateRaw = dateRaw.String
		summary.Text = summaryText.String
		summary.Category = cat.String
		summary.EntityID = entityID.String
		summary.GeneratedAt = generatedAt.Time
		if amount.Valid {
			v := amount.Float64
			summary.Amount = &v
		}

		annotated = append(annotated, service.AnnotatedDocument{Document: doc, Summary: summary})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annotated documents: %w", err)
	}
	return annotated, nil
}

func scanSummary(row rowScanner) (*model.Summary, error) {
	var summary model.Summary
	var docType, vendor, dateRaw, summaryText, category, entityID sql.NullString
	var amount sql.NullFloat64
	var generatedAt sql.NullTime

	if err := row.Scan(
		&summary.DocumentID, &docType, &vendor, &dateRaw, &amount,
		&summaryText, &category, &summary.Status, &entityID,
		&summary.EntityConfidence, &generatedAt,
	); err != nil {
		return nil, err
	}

	summary.DocumentType = docType.String
	summary.Vendor = vendor.String
	summary.DateRaw = dateRaw.String
	summary.Text = summaryText.String
	summary.Category = category.String
	summary.EntityID = entityID.String
	summary.GeneratedAt = generatedAt.Time
	if amount.Valid {
		v := amount.Float64
		summary.Amount = &v
	}
	return &summary, nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

const insightColumns = `id, insight_type, priority, status, title, description, action,
	dedup_key, entity_id, entity_name, entity_type, related_docs, metadata,
	generated_at, expires_at, dismissed_at`

// SaveInsight inserts a new insight. The dedup index rejects a second
// active insight with the same (type, entity, dedup key); callers are
// expected to go through FindActiveInsight first.
func (s *SQLiteStorage) SaveInsight(ctx context.Context, insight *model.Insight) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInsight(insight); err != nil {
		return err
	}

	relatedDocs, metadata, err := marshalInsightBlobs(insight)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO insights (`+insightColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insight.ID, insight.Type, insight.Priority, insight.Status,
		insight.Title, insight.Description, insight.Action,
		insight.DedupKey, nullable(insight.EntityID), insight.EntityName, insight.EntityType,
		relatedDocs, metadata,
		insight.GeneratedAt, insight.ExpiresAt, insight.DismissedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}
	return nil
}

// UpdateInsight rewrites all mutable fields of an existing insight.
func (s *SQLiteStorage) UpdateInsight(ctx context.Context, insight *model.Insight) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInsight(insight); err != nil {
		return err
	}

	relatedDocs, metadata, err := marshalInsightBlobs(insight)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE insights
		 SET priority = ?, status = ?, title = ?, description = ?, action = ?,
		     entity_name = ?, related_docs = ?, metadata = ?,
		     generated_at = ?, expires_at = ?, dismissed_at = ?
		 WHERE id = ?`,
		insight.Priority, insight.Status, insight.Title, insight.Description,
		insight.Action, insight.EntityName, relatedDocs, metadata,
		insight.GeneratedAt, insight.ExpiresAt, insight.DismissedAt,
		insight.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update insight: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("insight %s: %w", insight.ID, common.ErrNotFound)
	}
	return nil
}

// GetInsight returns a single insight by ID.
func (s *SQLiteStorage) GetInsight(ctx context.Context, id string) (*model.Insight, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE id = ?`, id)

	insight, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insight %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query insight: %w", err)
	}
	return insight, nil
}

// FindActiveInsight looks up the active insight matching one dedup
// identity, or (nil, nil) when no active match exists.
func (s *SQLiteStorage) FindActiveInsight(ctx context.Context, insightType model.InsightType, entityID, dedupKey string) (*model.Insight, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+insightColumns+` FROM insights
		 WHERE status = 'active' AND insight_type = ?
		   AND COALESCE(entity_id, '') = ? AND dedup_key = ?`,
		insightType, entityID, dedupKey)

	insight, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active insight: %w", err)
	}
	return insight, nil
}

// GetActiveInsights returns all active insights, most urgent first and
// newest first within the same priority.
func (s *SQLiteStorage) GetActiveInsights(ctx context.Context) ([]model.Insight, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+insightColumns+` FROM insights
		 WHERE status = 'active'
		 ORDER BY CASE priority
		     WHEN 'high' THEN 0
		     WHEN 'medium' THEN 1
		     WHEN 'low' THEN 2
		     ELSE 3
		 END, generated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var insights []model.Insight
	for rows.Next() {
		insight, scanErr := scanInsight(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", scanErr)
		}
		insights = append(insights, *insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insights: %w", err)
	}
	return insights, nil
}

// SetInsightStatus records a lifecycle transition. The caller validates
// the transition itself; this only persists it.
func (s *SQLiteStorage) SetInsightStatus(ctx context.Context, id string, status model.InsightStatus, dismissedAt *time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	switch status {
	case model.InsightActive, model.InsightDismissed, model.InsightResolved:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE insights SET status = ?, dismissed_at = ? WHERE id = ?`,
		status, dismissedAt, id)
	if err != nil {
		return fmt.Errorf("failed to set insight status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("insight %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// SweepInsights deletes insights past their expiry, whether active or
// dismissed, plus dismissed insights older than the retention window.
// Unexpired active and resolved insights are never touched. Returns the
// number removed.
func (s *SQLiteStorage) SweepInsights(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	cutoff := now.Add(-retention)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM insights
		 WHERE (status IN ('active', 'dismissed') AND expires_at IS NOT NULL AND expires_at < ?)
		    OR (status = 'dismissed' AND dismissed_at IS NOT NULL AND dismissed_at < ?)`,
		now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep insights: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept insights: %w", err)
	}
	return int(affected), nil
}

// GetCategoryOverview aggregates per-category document counts and
// active insight counts. Detectors record the source category in the
// insight metadata, which is what ties the two tables together.
func (s *SQLiteStorage) GetCategoryOverview(ctx context.Context) ([]service.CategoryOverview, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM summaries
		 WHERE category IS NOT NULL AND category != ''
		 GROUP BY category
		 ORDER BY COUNT(*) DESC, category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var overviews []service.CategoryOverview
	index := make(map[string]int)
	for rows.Next() {
		var overview service.CategoryOverview
		if scanErr := rows.Scan(&overview.Category, &overview.DocumentCount); scanErr != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", scanErr)
		}
		index[overview.Category] = len(overviews)
		overviews = append(overviews, overview)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	insightRows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(json_extract(metadata, '$.category'), ''), priority, COUNT(*)
		 FROM insights
		 WHERE status = 'active'
		 GROUP BY 1, 2`)
	if err != nil {
		return nil, fmt.Errorf("failed to query insight counts: %w", err)
	}
	defer func() { _ = insightRows.Close() }()

	for insightRows.Next() {
		var category string
		var priority model.Priority
		var count int
		if scanErr := insightRows.Scan(&category, &priority, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan insight count: %w", scanErr)
		}
		pos, ok := index[category]
		if !ok {
			continue
		}
		overviews[pos].ActiveInsights += count
		switch priority {
		case model.PriorityHigh:
			overviews[pos].HighPriority += count
		case model.PriorityMedium:
			overviews[pos].MediumPriority += count
		case model.PriorityLow:
			overviews[pos].LowPriority += count
		}
	}
	if err := insightRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insight counts: %w", err)
	}

	return overviews, nil
}

func marshalInsightBlobs(insight *model.Insight) (relatedDocs, metadata []byte, err error) {
	relatedDocs, err = json.Marshal(insight.RelatedDocs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal related docs: %w", err)
	}
	if insight.Metadata != nil {
		metadata, err = json.Marshal(insight.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}
	return relatedDocs, metadata, nil
}

func scanInsight(row rowScanner) (*model.Insight, error) {
	var insight model.Insight
	var description, action, entityID, entityName, entityType sql.NullString
	var relatedDocs, metadata sql.NullString
	var expiresAt, dismissedAt sql.NullTime
	if err := row.Scan(
		&insight.ID, &insight.Type, &insight.Priority, &insight.Status,
		&insight.Title, &description, &action,
		&insight.DedupKey, &entityID, &entityName, &entityType,
		&relatedDocs, &metadata,
		&insight.GeneratedAt, &expiresAt, &dismissedAt,
	); err != nil {
		return nil, err
	}
	insight.Description = description.String
	insight.Action = action.String
	insight.EntityID = entityID.String
	insight.EntityName = entityName.String
	insight.EntityType = model.EntityType(entityType.String)
	if expiresAt.Valid {
		insight.ExpiresAt = &expiresAt.Time
	}
	if dismissedAt.Valid {
		insight.DismissedAt = &dismissedAt.Time
	}
	if relatedDocs.Valid && relatedDocs.String != "" {
		if err := json.Unmarshal([]byte(relatedDocs.String), &insight.RelatedDocs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal related docs: %w", err)
		}
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &insight.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &insight, nil
}

// Package storage provides the data persistence layer for hearthkeep.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrInvalidInsight    = errors.New("invalid insight")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidCorrection = errors.New("invalid correction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEntity validates a single entity.
func validateEntity(entity *model.Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity", ErrNilParameter)
	}
	if entity.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidEntity)
	}
	if strings.TrimSpace(entity.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidEntity)
	}
	if !entity.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntity, entity.Type)
	}
	return nil
}

// validateDocument validates a single document.
func validateDocument(doc *model.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document", ErrNilParameter)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidDocument)
	}
	if doc.Filename == "" {
		return fmt.Errorf("%w: missing filename", ErrInvalidDocument)
	}
	if doc.CapturedAt.IsZero() {
		return fmt.Errorf("%w: missing capture time", ErrInvalidDocument)
	}
	return nil
}

// validateInsight validates a single insight.
func validateInsight(insight *model.Insight) error {
	if insight == nil {
		return fmt.Errorf("%w: insight", ErrNilParameter)
	}
	if insight.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidInsight)
	}
	if insight.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidInsight)
	}
	if insight.DedupKey == "" {
		return fmt.Errorf("%w: missing dedup key", ErrInvalidInsight)
	}
	if insight.EntityID == "" {
		return fmt.Errorf("%w: missing entity", ErrInvalidInsight)
	}

	switch insight.Priority {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidPriority, insight.Priority)
	}

	switch insight.Status {
	case model.InsightActive, model.InsightDismissed, model.InsightResolved:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, insight.Status)
	}

	return nil
}

// validateCorrection validates a category correction record.
func validateCorrection(correction *model.CategoryCorrection) error {
	if correction == nil {
		return fmt.Errorf("%w: correction", ErrNilParameter)
	}
	if correction.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCorrection)
	}
	if correction.NewCategory == "" {
		return fmt.Errorf("%w: missing new category", ErrInvalidCorrection)
	}
	return nil
}

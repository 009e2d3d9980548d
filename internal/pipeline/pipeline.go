// Package pipeline orchestrates the categorization flow: fact extraction,
// entity resolution, category classification, and the optional interactive
// review loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hearthkeep/hearthkeep/internal/cli"
	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/resolver"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

// EntityResolver matches extracted hints against the entity registry.
type EntityResolver interface {
	Resolve(ctx context.Context, documentID string, hints model.EntityHints) (resolver.Result, error)
}

// ReviewPrompter asks the user to confirm or correct an assigned category.
type ReviewPrompter interface {
	ConfirmCategory(ctx context.Context, doc model.Document, summary model.Summary, categories []model.Category) (cli.ReviewDecision, error)
}

// Config holds pipeline tuning knobs.
type Config struct {
	CorrectionLimit int // recent corrections fed to the classifier
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{CorrectionLimit: 15}
}

// Stats summarizes one categorization run.
type Stats struct {
	Processed   int
	Categorized int
	Corrected   int
	Suggested   int // new entity suggestions emitted
	Skipped     int
	Failed      int
}

// Pipeline runs documents through extraction, resolution and
// classification.
type Pipeline struct {
	store     service.Storage
	extractor service.Extractor
	resolver  EntityResolver
	prompter  ReviewPrompter // nil outside review mode
	logger    *slog.Logger
	progress  func(done, total int)
	now       func() time.Time
	cfg       Config
}

// New creates a pipeline. The prompter may be nil, which disables the
// interactive review step.
func New(store service.Storage, extractor service.Extractor, entityResolver EntityResolver, prompter ReviewPrompter, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.CorrectionLimit <= 0 {
		cfg.CorrectionLimit = DefaultConfig().CorrectionLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		extractor: extractor,
		resolver:  entityResolver,
		prompter:  prompter,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// OnProgress registers a callback invoked after each document.
func (p *Pipeline) OnProgress(fn func(done, total int)) {
	p.progress = fn
}

// Run categorizes every pending document. Individual document failures
// are logged and counted, not fatal; cancellation stops the run.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	categories, err := p.store.GetCategories(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load categories: %w", err)
	}
	if len(categories) == 0 {
		return stats, fmt.Errorf("%w: no categories, run migrations first", common.ErrInvalidConfig)
	}

	docs, err := p.store.GetDocumentsToCategorize(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load pending documents: %w", err)
	}
	if len(docs) == 0 {
		p.logger.Info("no documents to categorize")
		return stats, nil
	}
	p.logger.Info("categorizing documents", "count", len(docs))

	household, err := p.store.GetHouseholdEntity(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load household entity: %w", err)
	}

	for i, doc := range docs {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if err := p.processDocument(ctx, doc, categories, household, &stats); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			p.logger.Error("failed to categorize document",
				"document", doc.ID, "filename", doc.Filename, "error", err)
			stats.Failed++
		}
		stats.Processed++
		if p.progress != nil {
			p.progress(i+1, len(docs))
		}
	}

	p.logger.Info("categorization complete",
		"processed", stats.Processed,
		"categorized", stats.Categorized,
		"corrected", stats.Corrected,
		"suggested", stats.Suggested,
		"failed", stats.Failed)
	return stats, nil
}

func (p *Pipeline) processDocument(ctx context.Context, doc model.Document, categories []model.Category, household *model.Entity, stats *Stats) error {
	facts, err := p.extractor.ExtractFacts(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("extraction: %w", err)
	}

	entityID := household.ID
	var confidence float64
	if p.resolver != nil {
		res, err := p.resolver.Resolve(ctx, doc.ID, facts.Hints)
		if err != nil {
			return fmt.Errorf("entity resolution: %w", err)
		}
		switch {
		case res.Entity != nil:
			entityID = res.Entity.ID
			confidence = res.Confidence
		case res.Suggestion != nil:
			res.Suggestion.ID = uuid.NewString()
			if err := p.store.SaveSuggestion(ctx, res.Suggestion); err != nil {
				p.logger.Warn("failed to save entity suggestion",
					"document", doc.ID, "error", err)
			} else {
				stats.Suggested++
			}
		}
	}

	corrections, err := p.store.GetRecentCorrections(ctx, p.cfg.CorrectionLimit)
	if err != nil {
		return fmt.Errorf("failed to load corrections: %w", err)
	}

	category, err := p.extractor.Classify(ctx, service.ClassifyRequest{
		Filename:     doc.Filename,
		DocumentType: facts.DocumentType,
		Vendor:       facts.Vendor,
		Summary:      facts.Summary,
		TextPreview:  doc.Text,
		Corrections:  corrections,
		Categories:   categories,
	})
	if err != nil {
		return fmt.Errorf("classification: %w", err)
	}

	summary := model.Summary{
		DocumentID:       doc.ID,
		DocumentType:     facts.DocumentType,
		Vendor:           facts.Vendor,
		DateRaw:          facts.Date,
		Amount:           facts.Amount,
		Text:             facts.Summary,
		Category:         category,
		EntityID:         entityID,
		EntityConfidence: confidence,
		Status:           model.StatusCategorizedByAI,
		GeneratedAt:      p.now().UTC(),
	}

	if p.prompter != nil {
		decision, err := p.prompter.ConfirmCategory(ctx, doc, summary, categories)
		if err != nil {
			return fmt.Errorf("review: %w", err)
		}
		if decision.Skipped {
			stats.Skipped++
			return nil
		}
		if decision.Corrected {
			if err := p.recordCorrection(ctx, doc, &summary, decision.Category); err != nil {
				return err
			}
			stats.Corrected++
		}
	}

	if err := p.store.SaveSummary(ctx, &summary); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	stats.Categorized++
	return nil
}

// Correct applies a user category override to an already categorized
// document and appends it to the correction log.
func (p *Pipeline) Correct(ctx context.Context, documentID, category string) error {
	if _, err := p.store.GetCategoryByName(ctx, category); err != nil {
		return fmt.Errorf("unknown category %q: %w", category, err)
	}

	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	summary, err := p.store.GetSummary(ctx, documentID)
	if err != nil {
		return err
	}
	if summary.Category == category {
		return nil
	}

	updated := *summary
	if err := p.recordCorrection(ctx, *doc, &updated, category); err != nil {
		return err
	}
	return p.store.SaveSummary(ctx, &updated)
}

// recordCorrection rewrites the summary's category as a user decision and
// appends the old/new pair to the correction log.
func (p *Pipeline) recordCorrection(ctx context.Context, doc model.Document, summary *model.Summary, category string) error {
	correction := model.CategoryCorrection{
		ID:           uuid.NewString(),
		DocumentID:   doc.ID,
		Filename:     doc.Filename,
		DocumentType: summary.DocumentType,
		Vendor:       summary.Vendor,
		OldCategory:  summary.Category,
		NewCategory:  category,
		CorrectedAt:  p.now().UTC(),
	}
	if err := p.store.AppendCorrection(ctx, &correction); err != nil {
		return fmt.Errorf("failed to record correction: %w", err)
	}

	summary.Category = category
	summary.Status = model.StatusUserModified
	return nil
}

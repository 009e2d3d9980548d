// Package insight derives proactive observations from categorized and
// entity-linked documents. Detectors run per (category, entity) group and
// are deduplicated against prior active insights, so repeated runs refresh
// rather than multiply.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

// Config tunes the detector gates. Zero values fall back to the defaults
// the thresholds were originally calibrated with.
type Config struct {
	VendorMinDocs      int           // recurring vendor gate
	SpendingMinDocs    int           // spending summary gate
	AnalysisMinDocs    int           // AI analysis gate per group
	SpendingWindow     time.Duration // lookback for spending summaries
	UpcomingWindow     time.Duration // horizon for upcoming dates
	VendorExpiry       time.Duration
	SpendingExpiry     time.Duration
	AnalysisExpiry     time.Duration
	LongAnalysisExpiry time.Duration // tax and legal findings live longer
	AnalysisEnabled    bool          // the AI pass is opt-in; it costs money
}

func (c Config) withDefaults() Config {
	if c.VendorMinDocs <= 0 {
		c.VendorMinDocs = 3
	}
	if c.SpendingMinDocs <= 0 {
		c.SpendingMinDocs = 5
	}
	if c.AnalysisMinDocs <= 0 {
		c.AnalysisMinDocs = 2
	}
	if c.SpendingWindow <= 0 {
		c.SpendingWindow = 90 * 24 * time.Hour
	}
	if c.UpcomingWindow <= 0 {
		c.UpcomingWindow = 90 * 24 * time.Hour
	}
	if c.VendorExpiry <= 0 {
		c.VendorExpiry = 60 * 24 * time.Hour
	}
	if c.SpendingExpiry <= 0 {
		c.SpendingExpiry = 7 * 24 * time.Hour
	}
	if c.AnalysisExpiry <= 0 {
		c.AnalysisExpiry = 60 * 24 * time.Hour
	}
	if c.LongAnalysisExpiry <= 0 {
		c.LongAnalysisExpiry = 90 * 24 * time.Hour
	}
	return c
}

// RunStats summarizes one generation pass.
type RunStats struct {
	Created        int
	Refreshed      int
	DetectorErrors int
}

// group is one detector work unit: the documents of one category that
// belong to one entity.
type group struct {
	Category string
	Entity   model.Entity
	Docs     []service.AnnotatedDocument
}

// Engine runs the detectors over the document corpus.
type Engine struct {
	store     service.Storage
	extractor service.Extractor
	logger    *slog.Logger
	now       func() time.Time
	cfg       Config
}

// NewEngine creates an insight engine. The extractor may be nil, which
// disables the AI analysis pass regardless of config.
func NewEngine(store service.Storage, extractor service.Extractor, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     store,
		extractor: extractor,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// Generate runs every detector over every (category, entity) group. A
// failing detector or category is logged and skipped; one bad group never
// aborts the pass.
func (e *Engine) Generate(ctx context.Context) (RunStats, error) {
	var stats RunStats
	now := e.now().UTC()

	categories, err := e.store.GetCategories(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load categories: %w", err)
	}
	entities, err := e.entityIndex(ctx)
	if err != nil {
		return stats, err
	}
	household, err := e.store.GetHouseholdEntity(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load household entity: %w", err)
	}

	for _, category := range categories {
		if !category.IsActive || category.Name == model.CategoryOther {
			continue
		}

		docs, err := e.store.GetAnnotatedByCategory(ctx, category.Name)
		if err != nil {
			e.logger.Error("failed to load category documents",
				"category", category.Name, "error", err)
			stats.DetectorErrors++
			continue
		}
		if len(docs) == 0 {
			continue
		}

		groups := buildGroups(category.Name, docs, entities, household)
		for _, g := range groups {
			for _, candidate := range detectVendorPatterns(g, now, e.cfg) {
				e.apply(ctx, candidate, &stats)
			}
			for _, candidate := range detectSpendingSummary(g, now, e.cfg) {
				e.apply(ctx, candidate, &stats)
			}
			for _, candidate := range detectUpcomingDates(g, now, e.cfg) {
				e.apply(ctx, candidate, &stats)
			}
		}

		if e.analysisEnabled() {
			if err := e.runAnalysis(ctx, category.Name, groups, now, &stats); err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				e.logger.Warn("AI analysis pass failed",
					"category", category.Name, "error", err)
				stats.DetectorErrors++
			}
		}
	}

	e.logger.Info("insight generation complete",
		"created", stats.Created,
		"refreshed", stats.Refreshed,
		"errors", stats.DetectorErrors)
	return stats, nil
}

func (e *Engine) analysisEnabled() bool {
	return e.cfg.AnalysisEnabled && e.extractor != nil
}

func (e *Engine) entityIndex(ctx context.Context) (map[string]model.Entity, error) {
	entities, err := e.store.GetActiveEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	index := make(map[string]model.Entity, len(entities))
	for _, entity := range entities {
		index[entity.ID] = entity
	}
	return index, nil
}

// buildGroups groups one category's documents by resolved entity.
// Documents linked to an unknown or inactive entity count as household.
func buildGroups(category string, docs []service.AnnotatedDocument, entities map[string]model.Entity, household *model.Entity) []group {
	byEntity := map[string][]service.AnnotatedDocument{}
	var order []string
	for _, doc := range docs {
		entityID := doc.Summary.EntityID
		if _, known := entities[entityID]; !known {
			entityID = household.ID
		}
		if _, seen := byEntity[entityID]; !seen {
			order = append(order, entityID)
		}
		byEntity[entityID] = append(byEntity[entityID], doc)
	}

	out := make([]group, 0, len(order))
	for _, entityID := range order {
		entity, ok := entities[entityID]
		if !ok {
			entity = *household
		}
		out = append(out, group{Category: category, Entity: entity, Docs: byEntity[entityID]})
	}
	return out
}

// apply upserts one candidate insight, counting the outcome.
func (e *Engine) apply(ctx context.Context, candidate model.Insight, stats *RunStats) {
	refreshed, err := e.upsert(ctx, &candidate)
	if err != nil {
		e.logger.Error("failed to store insight",
			"type", candidate.Type,
			"dedup_key", candidate.DedupKey,
			"error", err)
		stats.DetectorErrors++
		return
	}
	if refreshed {
		stats.Refreshed++
	} else {
		stats.Created++
	}
}

// upsert refreshes the matching active insight if one exists, otherwise
// inserts. A refresh rewrites the computed fields and merges the related
// document set; user-controlled status is never touched.
func (e *Engine) upsert(ctx context.Context, candidate *model.Insight) (bool, error) {
	existing, err := e.store.FindActiveInsight(ctx, candidate.Type, candidate.EntityID, candidate.DedupKey)
	if err != nil {
		return false, err
	}

	if existing == nil {
		candidate.ID = uuid.NewString()
		candidate.Status = model.InsightActive
		return false, e.store.SaveInsight(ctx, candidate)
	}

	existing.Priority = candidate.Priority
	existing.Title = candidate.Title
	existing.Description = candidate.Description
	existing.Action = candidate.Action
	existing.EntityName = candidate.EntityName
	existing.GeneratedAt = candidate.GeneratedAt
	existing.ExpiresAt = candidate.ExpiresAt
	existing.Metadata = candidate.Metadata
	existing.RelatedDocs = mergeDocIDs(existing.RelatedDocs, candidate.RelatedDocs)
	return true, e.store.UpdateInsight(ctx, existing)
}

func mergeDocIDs(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, id := range existing {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, id := range incoming {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	return merged
}

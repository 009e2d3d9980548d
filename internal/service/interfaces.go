// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// AnnotatedDocument pairs a document with its derived summary for
// detector consumption.
type AnnotatedDocument struct {
	Document model.Document
	Summary  model.Summary
}

// CategoryOverview aggregates per-category dashboard statistics.
type CategoryOverview struct {
	Category       string
	DocumentCount  int
	ActiveInsights int
	HighPriority   int
	MediumPriority int
	LowPriority    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Document operations
	SaveDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetDocumentsToCategorize(ctx context.Context) ([]model.Document, error)
	SaveSummary(ctx context.Context, summary *model.Summary) error
	GetSummary(ctx context.Context, documentID string) (*model.Summary, error)
	GetAnnotatedByCategory(ctx context.Context, category string) ([]AnnotatedDocument, error)

	// Entity operations
	CreateEntity(ctx context.Context, entity *model.Entity) error
	UpdateEntity(ctx context.Context, entity *model.Entity) error
	GetEntity(ctx context.Context, id string) (*model.Entity, error)
	GetActiveEntities(ctx context.Context) ([]model.Entity, error)
	GetHouseholdEntity(ctx context.Context) (*model.Entity, error)
	CountLinkedDocuments(ctx context.Context, entityID string) (int, error)

	// Entity suggestion operations
	SaveSuggestion(ctx context.Context, suggestion *model.EntitySuggestion) error
	GetPendingSuggestions(ctx context.Context) ([]model.EntitySuggestion, error)
	GetSuggestion(ctx context.Context, id string) (*model.EntitySuggestion, error)
	ResolveSuggestion(ctx context.Context, id string, status model.SuggestionStatus) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)

	// Correction log
	AppendCorrection(ctx context.Context, correction *model.CategoryCorrection) error
	GetRecentCorrections(ctx context.Context, limit int) ([]model.CategoryCorrection, error)

	// Insight operations
	SaveInsight(ctx context.Context, insight *model.Insight) error
	UpdateInsight(ctx context.Context, insight *model.Insight) error
	GetInsight(ctx context.Context, id string) (*model.Insight, error)
	FindActiveInsight(ctx context.Context, insightType model.InsightType, entityID, dedupKey string) (*model.Insight, error)
	GetActiveInsights(ctx context.Context) ([]model.Insight, error)
	SetInsightStatus(ctx context.Context, id string, status model.InsightStatus, dismissedAt *time.Time) error
	SweepInsights(ctx context.Context, now time.Time, retention time.Duration) (int, error)
	GetCategoryOverview(ctx context.Context) ([]CategoryOverview, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ClassifyRequest carries everything the classifier needs for one document.
type ClassifyRequest struct {
	Filename     string
	DocumentType string
	Vendor       string
	Summary      string
	TextPreview  string
	Corrections  []model.CategoryCorrection
	Categories   []model.Category
}

// Finding is one anomaly or recommendation parsed from an AI analysis pass.
type Finding struct {
	Title          string
	Description    string
	Recommendation string
	Priority       string
	UrgencyDays    int
}

// Extractor defines the contract for the external LLM boundary. It may be
// slow, unavailable, or wrong; callers treat failures as "no result this
// run" rather than fatal errors.
type Extractor interface {
	ExtractFacts(ctx context.Context, text string) (model.ExtractedFacts, error)
	Classify(ctx context.Context, req ClassifyRequest) (string, error)
	AnalyzeGroup(ctx context.Context, prompt string) ([]Finding, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

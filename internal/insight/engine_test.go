package insight

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/service"
	"github.com/hearthkeep/hearthkeep/internal/storage"
)

func createTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedDoc writes a document and its summary in one go.
func seedDoc(t *testing.T, store *storage.SQLiteStorage, id, category, vendor, docType, dateRaw string, amount *float64, capturedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &model.Document{
		ID:         id,
		Filename:   id + ".pdf",
		Text:       "text of " + id,
		CapturedAt: capturedAt,
	}))
	require.NoError(t, store.SaveSummary(ctx, &model.Summary{
		DocumentID:   id,
		DocumentType: docType,
		Vendor:       vendor,
		DateRaw:      dateRaw,
		Amount:       amount,
		Text:         "summary of " + id,
		Category:     category,
		EntityID:     "household",
		Status:       model.StatusCategorizedByAI,
		GeneratedAt:  capturedAt,
	}))
}

func amt(v float64) *float64 { return &v }

func fixedEngine(store service.Storage, extractor service.Extractor, cfg Config, now time.Time) *Engine {
	e := NewEngine(store, extractor, cfg, nil)
	e.now = func() time.Time { return now }
	return e
}

func TestVendorPatternInsight(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		seedDoc(t, store, fmt.Sprintf("doc-%d", i), "utilities", "Acme Energy", "Bill", "", amt(80), now.AddDate(0, 0, -i*20))
	}

	engine := fixedEngine(store, nil, Config{}, now)
	stats, err := engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Zero(t, stats.DetectorErrors)

	insights, err := store.GetActiveInsights(ctx)
	require.NoError(t, err)
	require.Len(t, insights, 1)

	got := insights[0]
	assert.Equal(t, model.InsightVendorPattern, got.Type)
	assert.Equal(t, model.PriorityLow, got.Priority)
	assert.Equal(t, "Recurring vendor: Acme Energy", got.Title)
	assert.Equal(t, "household", got.EntityID)
	assert.Len(t, got.RelatedDocs, 3)
	assert.Equal(t, "utilities", got.Metadata["category"])
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, now.Add(60*24*time.Hour), *got.ExpiresAt, time.Minute)
}

func TestVendorPatternBelowGate(t *testing.T) {
	store := createTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seedDoc(t, store, "doc-0", "utilities", "Acme Energy", "Bill", "", amt(80), now)
	seedDoc(t, store, "doc-1", "utilities", "Acme Energy", "Bill", "", amt(82), now)

	engine := fixedEngine(store, nil, Config{}, now)
	stats, err := engine.Generate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Created)
}

func TestGenerateIsIdempotent(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		seedDoc(t, store, fmt.Sprintf("doc-%d", i), "utilities", "Acme Energy", "Bill", "", nil, now)
	}

	engine := fixedEngine(store, nil, Config{}, now)
	_, err := engine.Generate(ctx)
	require.NoError(t, err)

	// Second run with one more document refreshes, never duplicates.
	seedDoc(t, store, "doc-3", "utilities", "Acme Energy", "Bill", "", nil, now)
	later := now.Add(24 * time.Hour)
	engine.now = func() time.Time { return later }

	stats, err := engine.Generate(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Created)
	assert.Equal(t, 1, stats.Refreshed)

	insights, err := store.GetActiveInsights(ctx)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Len(t, insights[0].RelatedDocs, 4)
	assert.WithinDuration(t, later, insights[0].GeneratedAt, time.Minute)
}

func TestDismissedInsightNotRecreatedAsDuplicate(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		seedDoc(t, store, fmt.Sprintf("doc-%d", i), "utilities", "Acme Energy", "Bill", "", nil, now)
	}

	engine := fixedEngine(store, nil, Config{}, now)
	_, err := engine.Generate(ctx)
	require.NoError(t, err)

	insights, err := store.GetActiveInsights(ctx)
	require.NoError(t, err)
	require.Len(t, insights, 1)

	// Dismissal removes it from the active set; the next run brings the
	// observation back as a fresh active insight.
	manager := NewManager(store, 0, nil)
	require.NoError(t, manager.Dismiss(ctx, insights[0].ID))

	stats, err := engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)

	active, err := store.GetActiveInsights(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestSpendingSummaryInsight(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	amounts := []float64{40, 45, 50, 55, 310}
	for i, amount := range amounts {
		seedDoc(t, store, fmt.Sprintf("doc-%d", i), "home", "Hardware Co", "Receipt", "", amt(amount), now.AddDate(0, 0, -i*10))
	}
	// A letter with an amount does not count toward spending.
	seedDoc(t, store, "doc-letter", "home", "Hardware Co", "Letter", "", amt(500), now)
	// Neither does an old receipt outside the window.
	seedDoc(t, store, "doc-old", "home", "Hardware Co", "Receipt", "", amt(60), now.AddDate(0, 0, -120))

	engine := fixedEngine(store, nil, Config{}, now)
	_, err := engine.Generate(ctx)
	require.NoError(t, err)

	insights, err := store.GetActiveInsights(ctx)
	require.NoError(t, err)

	var summary *model.Insight
	for i := range insights {
		if insights[i].Type == model.InsightSpendingSummary {
			summary = &insights[i]
		}
	}
	require.NotNil(t, summary)
	assert.Equal(t, "Recent spending summary (last 90 days)", summary.Title)
	assert.Len(t, summary.RelatedDocs, 5)
	require.NotNil(t, summary.ExpiresAt)
	assert.WithinDuration(t, now.Add(7*24*time.Hour), *summary.ExpiresAt, time.Minute)

	assert.InDelta(t, 500.0, summary.Metadata["total_amount"].(float64), 0.01)
	assert.InDelta(t, 100.0, summary.Metadata["average_amount"].(float64), 0.01)
	// The 310 receipt is more than twice the average.
	highCost, ok := summary.Metadata["high_cost_docs"].([]any)
	require.True(t, ok)
	require.Len(t, highCost, 1)
	assert.Equal(t, "doc-4", highCost[0])
}

func TestUpcomingDateInsight(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seedDoc(t, store, "doc-soon", "vehicle", "AXA Insurance", "Insurance", "5 March 2026", nil, now)
	seedDoc(t, store, "doc-month", "vehicle", "NCT Centre", "Letter", "25/03/2026", nil, now)
	seedDoc(t, store, "doc-far", "vehicle", "Motor Tax", "Letter", "2026-05-15", nil, now)
	seedDoc(t, store, "doc-past", "vehicle", "Garage Ltd", "Invoice", "1 January 2026", nil, now)
	seedDoc(t, store, "doc-garbled", "vehicle", "Garage Ltd", "Invoice", "sometime in spring", nil, now)
	seedDoc(t, store, "doc-beyond", "vehicle", "Dealer", "Letter", "2026-12-01", nil, now)

	engine := fixedEngine(store, nil, Config{}, now)
	_, err := engine.Generate(ctx)
	require.NoError(t, err)

	insights, err := store.GetActiveInsights(ctx)
	require.NoError(t, err)

	byDoc := map[string]model.Insight{}
	for _, in := range insights {
		if in.Type == model.InsightUpcomingDate {
			require.Len(t, in.RelatedDocs, 1)
			byDoc[in.RelatedDocs[0]] = in
		}
	}
	require.Len(t, byDoc, 3, "past, garbled and beyond-horizon dates are skipped")

	assert.Equal(t, model.PriorityHigh, byDoc["doc-soon"].Priority)
	assert.Equal(t, model.PriorityMedium, byDoc["doc-month"].Priority)
	assert.Equal(t, model.PriorityLow, byDoc["doc-far"].Priority)

	// The insight expires the moment the date passes.
	require.NotNil(t, byDoc["doc-soon"].ExpiresAt)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), byDoc["doc-soon"].ExpiresAt.UTC())
}

func TestUpcomingDatePriorityClimbs(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seedDoc(t, store, "doc-renewal", "vehicle", "AXA Insurance", "Insurance", "2026-04-10", nil, now)

	engine := fixedEngine(store, nil, Config{}, now)
	_, err := engine.Generate(ctx)
	require.NoError(t, err)

	insights, err := store.GetActiveInsights(ctx)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, model.PriorityLow, insights[0].Priority)

	// Five weeks later the same insight is high priority, still one row.
	later := time.Date(2026, 4, 5, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return later }
	stats, err := engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Refreshed)

	insights, err = store.GetActiveInsights(ctx)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, model.PriorityHigh, insights[0].Priority)
}

func TestOtherCategoryExcluded(t *testing.T) {
	store := createTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		seedDoc(t, store, fmt.Sprintf("doc-%d", i), "other", "Mystery Co", "Letter", "", nil, now)
	}

	engine := fixedEngine(store, nil, Config{}, now)
	stats, err := engine.Generate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Created)
}

// stubAnalyzer returns fixed findings for every group it is asked about.
type stubAnalyzer struct {
	findings []service.Finding
	err      error
	prompts  []string
}

func (s *stubAnalyzer) ExtractFacts(context.Context, string) (model.ExtractedFacts, error) {
	return model.ExtractedFacts{}, nil
}

func (s *stubAnalyzer) Classify(context.Context, service.ClassifyRequest) (string, error) {
	return model.CategoryOther, nil
}

func (s *stubAnalyzer) AnalyzeGroup(_ context.Context, prompt string) ([]service.Finding, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return nil, s.err
	}
	return s.findings, nil
}

func TestAnalysisPassCreatesInsights(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seedDoc(t, store, "doc-0", "vehicle", "AXA Insurance", "Insurance", "", nil, now)
	seedDoc(t, store, "doc-1", "vehicle", "Garage Ltd", "Invoice", "", amt(240), now)

	analyzer := &stubAnalyzer{findings: []service.Finding{
		{
			Title:          "No NCT certificate on file",
			Description:    "Insurance and service records exist but no NCT certificate.",
			Recommendation: "Check the NCT status and book a test if due",
			Priority:       "high",
			UrgencyDays:    14,
		},
		{
			Title:          "Consider shopping the insurance renewal",
			Description:    "Premium is near renewal.",
			Recommendation: "Get comparison quotes",
			Priority:       "low",
		},
	}}

	engine := fixedEngine(store, analyzer, Config{AnalysisEnabled: true}, now)
	stats, err := engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)
	require.NotEmpty(t, analyzer.prompts)
	assert.Contains(t, analyzer.prompts[0], "vehicle documents")
	assert.Contains(t, analyzer.prompts[0], "AXA Insurance")

	insights, err := store.GetActiveInsights(ctx)
	require.NoError(t, err)
	require.Len(t, insights, 2)

	// Ordered by priority, so the anomaly leads.
	assert.Equal(t, model.InsightAnomaly, insights[0].Type)
	assert.Equal(t, model.PriorityHigh, insights[0].Priority)
	assert.Equal(t, "Check the NCT status and book a test if due", insights[0].Action)
	assert.Equal(t, 14, int(insights[0].Metadata["urgency_days"].(float64)))

	assert.Equal(t, model.InsightRecommendation, insights[1].Type)
	assert.Equal(t, model.PriorityLow, insights[1].Priority)
}

func TestAnalysisFailureIsIsolated(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Rule detectors still produce their insight when the AI pass fails.
	for i := 0; i < 3; i++ {
		seedDoc(t, store, fmt.Sprintf("doc-%d", i), "utilities", "Acme Energy", "Bill", "", nil, now)
	}

	analyzer := &stubAnalyzer{err: fmt.Errorf("model overloaded")}
	engine := fixedEngine(store, analyzer, Config{AnalysisEnabled: true}, now)

	stats, err := engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.GreaterOrEqual(t, stats.DetectorErrors, 1)
}

func TestAnalysisDisabledWithoutExtractor(t *testing.T) {
	store := createTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seedDoc(t, store, "doc-0", "vehicle", "AXA Insurance", "Insurance", "", nil, now)
	seedDoc(t, store, "doc-1", "vehicle", "Garage Ltd", "Invoice", "", nil, now)

	engine := fixedEngine(store, nil, Config{AnalysisEnabled: true}, now)
	stats, err := engine.Generate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Created)
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

// mockClient records prompts and plays back canned responses.
type mockClient struct {
	responses []string
	err       error
	calls     int
	prompts   []string
	systems   []string
}

func (m *mockClient) Complete(_ context.Context, systemPrompt, prompt string, _ int) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.systems = append(m.systems, systemPrompt)
	if m.err != nil {
		return "", m.err
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func newTestExtractor(t *testing.T, client Client) *Extractor {
	t.Helper()
	e := NewWithClient(client, Config{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		CacheTTL:   time.Minute,
		RateLimit:  6000,
	}, nil)
	t.Cleanup(e.Close)
	return e
}

func TestExtractFacts(t *testing.T) {
	mock := &mockClient{responses: []string{"```json\n" + `{
		"summary": "Vet bill for Rex's annual vaccination",
		"document_type": "Invoice",
		"extracted_date": "3 January 2026",
		"extracted_amount": "€75.00",
		"extracted_vendor": "City Vets",
		"entity_hints": {"pet_name": "Rex"}
	}` + "\n```"}}
	e := newTestExtractor(t, mock)

	facts, err := e.ExtractFacts(context.Background(), "INVOICE City Vets ... Rex annual vaccination EUR 75.00")
	require.NoError(t, err)

	assert.Equal(t, "Vet bill for Rex's annual vaccination", facts.Summary)
	assert.Equal(t, "Invoice", facts.DocumentType)
	assert.Equal(t, "City Vets", facts.Vendor)
	assert.Equal(t, "3 January 2026", facts.Date)
	require.NotNil(t, facts.Amount)
	assert.InDelta(t, 75.0, *facts.Amount, 0.001)
	assert.Equal(t, "Rex", facts.Hints.PetName)
	assert.Empty(t, facts.Hints.PersonName)
}

func TestExtractFactsCaching(t *testing.T) {
	mock := &mockClient{responses: []string{`{"summary": "A letter", "document_type": "Letter"}`}}
	e := newTestExtractor(t, mock)

	text := "Dear resident, ..."
	_, err := e.ExtractFacts(context.Background(), text)
	require.NoError(t, err)
	_, err = e.ExtractFacts(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.calls, "second call for identical text should hit the cache")

	// Different text misses the cache.
	_, err = e.ExtractFacts(context.Background(), "Something else entirely")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.calls)
}

func TestExtractFactsEmptyText(t *testing.T) {
	e := newTestExtractor(t, &mockClient{responses: []string{"{}"}})

	_, err := e.ExtractFacts(context.Background(), "   \n\t ")
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
}

func TestExtractFactsMalformedResponse(t *testing.T) {
	mock := &mockClient{responses: []string{"Sorry, I cannot help with that."}}
	e := newTestExtractor(t, mock)

	_, err := e.ExtractFacts(context.Background(), "some document text")
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
}

func TestExtractFactsTruncatesLongText(t *testing.T) {
	mock := &mockClient{responses: []string{`{"summary": "Long one"}`}}
	e := newTestExtractor(t, mock)

	_, err := e.ExtractFacts(context.Background(), strings.Repeat("x", 10000))
	require.NoError(t, err)

	require.Len(t, mock.prompts, 1)
	assert.Less(t, len(mock.prompts[0]), 4000)
}

func classifyCategories() []model.Category {
	return []model.Category{
		{Name: "vehicle", Description: "Cars, motorbikes, tax, NCT, repairs"},
		{Name: "medical", Description: "Doctors, hospitals, prescriptions"},
		{Name: "pets", Description: "Vets, pet insurance, grooming"},
		{Name: "other", Description: "Everything else"},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"exact match", "vehicle", "vehicle"},
		{"whitespace and case", "  Medical \n", "medical"},
		{"unknown category falls back", "automotive-adjacent", "other"},
		{"chatty answer falls back", "I think this is a vehicle document.", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockClient{responses: []string{tt.response}}
			e := newTestExtractor(t, mock)

			got, err := e.Classify(context.Background(), service.ClassifyRequest{
				Filename:   "scan001.pdf",
				Categories: classifyCategories(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyPromptIncludesCorrections(t *testing.T) {
	mock := &mockClient{responses: []string{"vehicle"}}
	e := newTestExtractor(t, mock)

	corrections := make([]model.CategoryCorrection, 0, 15)
	for i := 0; i < 15; i++ {
		corrections = append(corrections, model.CategoryCorrection{
			Filename:     fmt.Sprintf("doc%02d.pdf", i),
			DocumentType: "Invoice",
			Vendor:       "Garage Ltd",
			OldCategory:  "home",
			NewCategory:  "vehicle",
		})
	}

	_, err := e.Classify(context.Background(), service.ClassifyRequest{
		Filename:    "nct-reminder.pdf",
		Summary:     "NCT test reminder",
		Corrections: corrections,
		Categories:  classifyCategories(),
	})
	require.NoError(t, err)

	require.Len(t, mock.prompts, 1)
	prompt := mock.prompts[0]
	assert.Contains(t, prompt, "AI suggested: home")
	assert.Contains(t, prompt, "User corrected to: vehicle")
	assert.Contains(t, prompt, "doc09.pdf")
	assert.NotContains(t, prompt, "doc10.pdf", "correction examples are capped at ten")
}

func TestClassifySkipsNonCorrections(t *testing.T) {
	mock := &mockClient{responses: []string{"vehicle"}}
	e := newTestExtractor(t, mock)

	_, err := e.Classify(context.Background(), service.ClassifyRequest{
		Filename: "a.pdf",
		Corrections: []model.CategoryCorrection{
			{Filename: "same.pdf", OldCategory: "pets", NewCategory: "pets"},
			{Filename: "manual.pdf", OldCategory: "", NewCategory: "medical"},
		},
		Categories: classifyCategories(),
	})
	require.NoError(t, err)

	assert.NotContains(t, mock.prompts[0], "Learn from these user corrections")
}

func TestClassifyNoCategories(t *testing.T) {
	e := newTestExtractor(t, &mockClient{responses: []string{"other"}})

	_, err := e.Classify(context.Background(), service.ClassifyRequest{Filename: "a.pdf"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestAnalyzeGroup(t *testing.T) {
	mock := &mockClient{responses: []string{"Here are the findings:\n```json\n" + `[
		{"title": "NCT due soon", "description": "Test expires within a month", "recommendation": "Book a slot", "priority": "HIGH", "urgency_days": 21},
		{"title": "Premium jumped", "description": "Insurance renewal is 40% higher", "recommendation": "Shop around", "priority": "medium", "urgency_days": "30"},
		{"description": "no title, should be dropped"}
	]` + "\n```"}}
	e := newTestExtractor(t, mock)

	findings, err := e.AnalyzeGroup(context.Background(), "Analyze these vehicle documents...")
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, "NCT due soon", findings[0].Title)
	assert.Equal(t, "high", findings[0].Priority)
	assert.Equal(t, 21, findings[0].UrgencyDays)
	assert.Equal(t, 30, findings[1].UrgencyDays, "numeric strings are tolerated")
}

func TestAnalyzeGroupEmptyArray(t *testing.T) {
	mock := &mockClient{responses: []string{"[]"}}
	e := newTestExtractor(t, mock)

	findings, err := e.AnalyzeGroup(context.Background(), "nothing interesting here")
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestAnalyzeGroupBadJSON(t *testing.T) {
	mock := &mockClient{responses: []string{"I found nothing worth reporting."}}
	e := newTestExtractor(t, mock)

	_, err := e.AnalyzeGroup(context.Background(), "prompt")
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
}

func TestRetryOnRateLimit(t *testing.T) {
	mock := &mockClient{err: fmt.Errorf("anthropic: %w", common.ErrRateLimit)}
	e := NewWithClient(mock, Config{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		RateLimit:  6000,
	}, nil)
	defer e.Close()
	e.retryOpts.MaxDelay = 2 * time.Millisecond

	_, err := e.ExtractFacts(context.Background(), "text")
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
	assert.Equal(t, 3, mock.calls, "rate limited calls are retried up to the attempt budget")
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	mock := &mockClient{err: &common.RetryableError{
		Err:       errors.New("invalid api key"),
		Retryable: false,
	}}
	e := NewWithClient(mock, Config{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		RateLimit:  6000,
	}, nil)
	defer e.Close()

	_, err := e.ExtractFacts(context.Background(), "text")
	assert.Error(t, err)
	assert.Equal(t, 1, mock.calls)
}

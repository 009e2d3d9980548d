package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

const (
	// maxDocumentChars bounds how much document text is sent for extraction.
	maxDocumentChars = 3000
	// maxPreviewChars bounds the content preview in classification prompts.
	maxPreviewChars = 500
	// maxCorrectionExamples caps the few-shot correction block.
	maxCorrectionExamples = 10
)

// Extractor implements the service.Extractor interface against an LLM API.
type Extractor struct {
	client      Client
	cache       *factsCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// New creates a new LLM-backed extractor.
func New(cfg Config, logger *slog.Logger) (*Extractor, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wires an extractor around an existing client. Used by tests
// to substitute a mock.
func NewWithClient(client Client, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Extractor{
		client:      client,
		cache:       newFactsCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}
}

// Close releases the extractor's background goroutines.
func (e *Extractor) Close() {
	e.cache.Close()
	e.rateLimiter.Close()
}

// extractedFactsPayload mirrors the JSON shape the extraction prompt asks for.
type extractedFactsPayload struct {
	Summary      string `json:"summary"`
	DocumentType string `json:"document_type"`
	Date         string `json:"extracted_date"`
	Amount       string `json:"extracted_amount"`
	Vendor       string `json:"extracted_vendor"`
	EntityHints  struct {
		PersonName   string `json:"person_name"`
		Registration string `json:"registration"`
		PetName      string `json:"pet_name"`
		Address      string `json:"address"`
	} `json:"entity_hints"`
}

// ExtractFacts asks the LLM for a structured summary of one document's text.
func (e *Extractor) ExtractFacts(ctx context.Context, text string) (model.ExtractedFacts, error) {
	if strings.TrimSpace(text) == "" {
		return model.ExtractedFacts{}, fmt.Errorf("%w: empty document text", common.ErrExtractionFailed)
	}

	key := hashText(text)
	if facts, found := e.cache.get(key); found {
		e.logger.Debug("extraction cache hit", "key", key[:12])
		return facts, nil
	}

	prompt := buildExtractionPrompt(text)

	var raw string
	err := common.WithRetry(ctx, func() error {
		if waitErr := e.rateLimiter.wait(ctx); waitErr != nil {
			return waitErr
		}
		var callErr error
		raw, callErr = e.client.Complete(ctx, extractionSystemPrompt, prompt, 500)
		return callErr
	}, e.retryOpts)
	if err != nil {
		return model.ExtractedFacts{}, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}

	payload, err := parseFactsResponse(raw)
	if err != nil {
		e.logger.Warn("failed to parse extraction response", "error", err)
		return model.ExtractedFacts{}, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}

	facts := model.ExtractedFacts{
		Summary:      payload.Summary,
		DocumentType: payload.DocumentType,
		Vendor:       payload.Vendor,
		Date:         payload.Date,
		Amount:       parseAmount(payload.Amount),
		Hints: model.EntityHints{
			PersonName:   payload.EntityHints.PersonName,
			Registration: payload.EntityHints.Registration,
			PetName:      payload.EntityHints.PetName,
			Address:      payload.EntityHints.Address,
		},
	}

	e.cache.set(key, facts)
	return facts, nil
}

// Classify assigns one category from the closed taxonomy to a document.
// Unknown or malformed answers fall back to the "other" category.
func (e *Extractor) Classify(ctx context.Context, req service.ClassifyRequest) (string, error) {
	if len(req.Categories) == 0 {
		return "", fmt.Errorf("%w: no categories configured", common.ErrInvalidConfig)
	}

	prompt := buildClassifyPrompt(req)

	var raw string
	err := common.WithRetry(ctx, func() error {
		if waitErr := e.rateLimiter.wait(ctx); waitErr != nil {
			return waitErr
		}
		var callErr error
		raw, callErr = e.client.Complete(ctx, classifySystemPrompt, prompt, 50)
		return callErr
	}, e.retryOpts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}

	answer := strings.ToLower(strings.TrimSpace(raw))
	for _, cat := range req.Categories {
		if answer == strings.ToLower(cat.Name) {
			return cat.Name, nil
		}
	}

	e.logger.Warn("classifier returned unknown category, using fallback",
		"answer", truncate(answer, 60),
		"fallback", model.CategoryOther)
	return model.CategoryOther, nil
}

// findingPayload mirrors the JSON shape the analysis prompt asks for.
type findingPayload struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
	Priority       string `json:"priority"`
	UrgencyDays    any    `json:"urgency_days"`
}

// AnalyzeGroup runs a free-form analysis pass over a prepared document group
// prompt and parses the returned JSON findings array. An empty array is a
// valid "nothing notable" result.
func (e *Extractor) AnalyzeGroup(ctx context.Context, prompt string) ([]service.Finding, error) {
	var raw string
	err := common.WithRetry(ctx, func() error {
		if waitErr := e.rateLimiter.wait(ctx); waitErr != nil {
			return waitErr
		}
		var callErr error
		raw, callErr = e.client.Complete(ctx, analysisSystemPrompt, prompt, 2000)
		return callErr
	}, e.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}

	payload, err := extractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}

	var parsed []findingPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse findings: %v", common.ErrExtractionFailed, err)
	}

	findings := make([]service.Finding, 0, len(parsed))
	for _, f := range parsed {
		if f.Title == "" {
			continue
		}
		findings = append(findings, service.Finding{
			Title:          f.Title,
			Description:    f.Description,
			Recommendation: f.Recommendation,
			Priority:       strings.ToLower(strings.TrimSpace(f.Priority)),
			UrgencyDays:    coerceDays(f.UrgencyDays),
		})
	}
	return findings, nil
}

const extractionSystemPrompt = "You are analysing a document for a household document management system. Respond only with the JSON object requested."

const classifySystemPrompt = "You are a household document classifier. Respond only with a single category name."

const analysisSystemPrompt = "You are a household document analyst. Respond only with the JSON array requested."

func buildExtractionPrompt(text string) string {
	var b strings.Builder
	b.WriteString(`The document text is below. Generate a structured summary with the following fields:

1. summary: A single sentence describing what this document is (in plain language for a family)
2. document_type: The type of document (e.g., Invoice, Receipt, Letter, Statement, Bill, Insurance, Medical, etc.)
3. extracted_date: Any date mentioned in the document (as a string, e.g., "3 January 2026")
4. extracted_amount: Any monetary amount (as a string with currency, e.g., "€75.00" or "$20.00")
5. extracted_vendor: The name of the company, organization, or person who issued this document
6. entity_hints: An object with person_name, registration (vehicle registration or make/model), pet_name, and address for whoever or whatever this document is about

If any field cannot be determined, use null.

Return ONLY a JSON object with these exact keys. No other text.

Document text:
`)
	b.WriteString(truncate(text, maxDocumentChars))
	return b.String()
}

func buildClassifyPrompt(req service.ClassifyRequest) string {
	var b strings.Builder
	b.WriteString("Categorize this document into ONE of the following life admin categories:\n\nCategories:\n")
	for _, cat := range req.Categories {
		fmt.Fprintf(&b, "- %s: %s\n", cat.Name, cat.Description)
	}

	corrections := usableCorrections(req.Corrections)
	if len(corrections) > 0 {
		b.WriteString("\nIMPORTANT - Learn from these user corrections:\n")
		b.WriteString("The user has manually corrected categories for these documents. Use these as examples to improve accuracy:\n\n")
		for i, corr := range corrections {
			fmt.Fprintf(&b, "%d. '%s' (Type: %s, Vendor: %s)\n", i+1, corr.Filename, corr.DocumentType, corr.Vendor)
			fmt.Fprintf(&b, "   AI suggested: %s\n", corr.OldCategory)
			fmt.Fprintf(&b, "   User corrected to: %s\n\n", corr.NewCategory)
		}
	}

	b.WriteString("\nDocument info:\n")
	fmt.Fprintf(&b, "Filename: %s\n", req.Filename)
	fmt.Fprintf(&b, "Type: %s\n", orUnknown(req.DocumentType))
	fmt.Fprintf(&b, "Vendor: %s\n", orUnknown(req.Vendor))
	fmt.Fprintf(&b, "Summary: %s\n", orNone(req.Summary))
	fmt.Fprintf(&b, "Content preview: %s\n", truncate(req.TextPreview, maxPreviewChars))
	b.WriteString("\nRespond with ONLY the category name, nothing else.")
	return b.String()
}

// usableCorrections filters the correction log down to genuine overrides
// and caps the few-shot block.
func usableCorrections(corrections []model.CategoryCorrection) []model.CategoryCorrection {
	var usable []model.CategoryCorrection
	for _, corr := range corrections {
		if corr.OldCategory == "" || corr.OldCategory == corr.NewCategory {
			continue
		}
		usable = append(usable, corr)
		if len(usable) == maxCorrectionExamples {
			break
		}
	}
	return usable
}

func parseFactsResponse(raw string) (extractedFactsPayload, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return extractedFactsPayload{}, err
	}

	var facts extractedFactsPayload
	if err := json.Unmarshal([]byte(payload), &facts); err != nil {
		return extractedFactsPayload{}, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}
	return facts, nil
}

// coerceDays tolerates the urgency field arriving as a number, a numeric
// string, or garbage.
func coerceDays(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if d := parseAmount(n); d != nil {
			return int(*d)
		}
	}
	return 0
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

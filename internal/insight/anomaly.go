package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

// analysisFocus gives the AI pass category-specific things to look for.
// Categories without an entry get the generic checklist.
var analysisFocus = map[string][]string{
	"vehicle": {
		"Completeness: are key documents missing? (insurance, NCT, tax, service records, registration)",
		"Renewals: any upcoming expiry dates or renewals needed?",
		"Maintenance: is the vehicle being properly maintained? Service intervals appropriate?",
		"Costs: any unusual costs or patterns worth noting?",
		"Compliance: all legal requirements met? (insurance, tax, NCT)",
	},
	"medical": {
		"Follow-ups: appointments or referrals that need booking?",
		"Prescriptions: renewals due or gaps in repeat prescriptions?",
		"Claims: receipts that look claimable against health insurance?",
	},
	"utilities": {
		"Cost trends: bills rising faster than usage would explain?",
		"Contract status: fixed-rate periods ending, better tariffs worth checking?",
		"Anomalies: unusually high individual bills?",
	},
	"tax": {
		"Deadlines: filing or payment deadlines approaching?",
		"Completeness: documents missing for a tax return?",
		"Reliefs: credits or reliefs the documents suggest are unclaimed?",
	},
}

var genericFocus = []string{
	"Completeness: do the documents suggest something important is missing?",
	"Deadlines: any dates that need action?",
	"Costs: unusual amounts or patterns worth noting?",
}

// longExpiryCategories keeps slow-moving findings around longer.
var longExpiryCategories = map[string]struct{}{
	"tax":   {},
	"legal": {},
}

// runAnalysis asks the LLM for findings over each group's documents and
// stores them as anomaly or recommendation insights.
func (e *Engine) runAnalysis(ctx context.Context, category string, groups []group, now time.Time, stats *RunStats) error {
	expiry := e.cfg.AnalysisExpiry
	if _, slow := longExpiryCategories[category]; slow {
		expiry = e.cfg.LongAnalysisExpiry
	}

	for _, g := range groups {
		if len(g.Docs) < e.cfg.AnalysisMinDocs {
			continue
		}

		prompt, err := buildAnalysisPrompt(category, g.Docs)
		if err != nil {
			return err
		}

		findings, err := e.extractor.AnalyzeGroup(ctx, prompt)
		if err != nil {
			return fmt.Errorf("analysis of %s documents: %w", category, err)
		}

		docIDs := make([]string, 0, len(g.Docs))
		for _, doc := range g.Docs {
			docIDs = append(docIDs, doc.Document.ID)
		}

		for _, finding := range findings {
			e.apply(ctx, findingToInsight(finding, g, docIDs, now, expiry), stats)
		}
	}
	return nil
}

// findingToInsight maps one AI finding onto the insight model. Low
// priority findings read as advice, higher ones as anomalies.
func findingToInsight(f service.Finding, g group, docIDs []string, now time.Time, expiry time.Duration) model.Insight {
	priority := model.PriorityMedium
	switch f.Priority {
	case "high":
		priority = model.PriorityHigh
	case "low":
		priority = model.PriorityLow
	}

	insightType := model.InsightAnomaly
	if priority == model.PriorityLow {
		insightType = model.InsightRecommendation
	}

	expires := now.Add(expiry)
	metadata := map[string]any{
		"category":       g.Category,
		"ai_generated":   true,
		"recommendation": f.Recommendation,
	}
	if f.UrgencyDays > 0 {
		metadata["urgency_days"] = f.UrgencyDays
	}

	action := f.Recommendation
	if action == "" {
		action = "Review documents"
	}

	return model.Insight{
		Type:        insightType,
		Priority:    priority,
		Title:       f.Title,
		Description: f.Description,
		Action:      action,
		DedupKey:    slugify(f.Title),
		EntityID:    g.Entity.ID,
		EntityName:  g.Entity.Name,
		EntityType:  g.Entity.Type,
		RelatedDocs: docIDs,
		GeneratedAt: now,
		ExpiresAt:   &expires,
		Metadata:    metadata,
	}
}

// analysisDoc is the per-document view serialized into the prompt.
type analysisDoc struct {
	Filename string `json:"filename"`
	Type     string `json:"type,omitempty"`
	Vendor   string `json:"vendor,omitempty"`
	Date     string `json:"date,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Captured string `json:"captured"`
}

func buildAnalysisPrompt(category string, docs []service.AnnotatedDocument) (string, error) {
	views := make([]analysisDoc, 0, len(docs))
	for _, doc := range docs {
		view := analysisDoc{
			Filename: doc.Document.Filename,
			Type:     doc.Summary.DocumentType,
			Vendor:   doc.Summary.Vendor,
			Date:     doc.Summary.DateRaw,
			Summary:  doc.Summary.Text,
			Captured: doc.Document.CapturedAt.Format("2006-01-02"),
		}
		if doc.Summary.Amount != nil {
			view.Amount = fmt.Sprintf("%.2f", *doc.Summary.Amount)
		}
		views = append(views, view)
	}

	payload, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode documents for analysis: %w", err)
	}

	focus := analysisFocus[category]
	if focus == nil {
		focus = genericFocus
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these %s documents and provide intelligent insights:\n\n", category)
	b.Write(payload)
	b.WriteString("\n\nEvaluate:\n")
	for i, point := range focus {
		fmt.Fprintf(&b, "%d. %s\n", i+1, point)
	}
	b.WriteString(`
For each significant finding, provide:
{
    "title": "Clear, actionable title",
    "description": "Detailed explanation of the issue/observation",
    "recommendation": "Specific action to take",
    "priority": "high|medium|low",
    "urgency_days": "how many days until action needed (if applicable)"
}

Only report significant findings. If everything looks good, return [].
Respond with a JSON array of insights.
`)
	return b.String(), nil
}

// slugify reduces a finding title to a stable dedup discriminator.
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

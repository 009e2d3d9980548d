package insight

import (
	"fmt"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// detectUpcomingDates flags documents whose extracted date lies ahead
// within the horizon. Priority tightens as the date approaches; re-running
// the pass recomputes it against the same dedup key, so a 40-day-out
// renewal climbs from low to high as the weeks pass.
func detectUpcomingDates(g group, now time.Time, cfg Config) []model.Insight {
	horizon := now.Add(cfg.UpcomingWindow)

	var out []model.Insight
	for _, doc := range g.Docs {
		raw := doc.Summary.DateRaw
		if raw == "" {
			continue
		}
		due, ok := parseDate(raw)
		if !ok {
			continue
		}
		if !due.After(now) || !due.Before(horizon) {
			continue
		}

		daysUntil := int(due.Sub(now).Hours() / 24)
		priority := upcomingPriority(daysUntil)

		docType := doc.Summary.DocumentType
		if docType == "" {
			docType = "Document"
		}
		vendor := doc.Summary.Vendor
		if vendor == "" {
			vendor = "Unknown"
		}

		expires := due
		out = append(out, model.Insight{
			Type:     model.InsightUpcomingDate,
			Priority: priority,
			Title:    fmt.Sprintf("Upcoming date: %s - %s", vendor, raw),
			Description: fmt.Sprintf("%s from %s has a date of %s (%d days from now).",
				docType, vendor, raw, daysUntil),
			Action:      "Review document",
			DedupKey:    doc.Document.ID + "|" + due.Format("2006-01-02"),
			EntityID:    g.Entity.ID,
			EntityName:  g.Entity.Name,
			EntityType:  g.Entity.Type,
			RelatedDocs: []string{doc.Document.ID},
			GeneratedAt: now,
			ExpiresAt:   &expires,
			Metadata: map[string]any{
				"category":    g.Category,
				"vendor":      vendor,
				"date":        raw,
				"parsed_date": due.Format(time.RFC3339),
				"days_until":  daysUntil,
			},
		})
	}
	return out
}

func upcomingPriority(daysUntil int) model.Priority {
	switch {
	case daysUntil <= 7:
		return model.PriorityHigh
	case daysUntil <= 30:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

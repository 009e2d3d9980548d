package insight

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// detectVendorPatterns flags vendors that show up repeatedly in one
// entity's documents. Low priority; it is a "you deal with these people a
// lot" observation, not a call to action.
func detectVendorPatterns(g group, now time.Time, cfg Config) []model.Insight {
	byVendor := map[string][]int{}
	var vendors []string
	for i, doc := range g.Docs {
		vendor := strings.TrimSpace(doc.Summary.Vendor)
		if vendor == "" {
			continue
		}
		key := strings.ToLower(vendor)
		if _, seen := byVendor[key]; !seen {
			vendors = append(vendors, key)
		}
		byVendor[key] = append(byVendor[key], i)
	}
	sort.Strings(vendors)

	var out []model.Insight
	for _, key := range vendors {
		indexes := byVendor[key]
		if len(indexes) < cfg.VendorMinDocs {
			continue
		}

		// Display name from the first occurrence; the key stays folded.
		vendor := strings.TrimSpace(g.Docs[indexes[0]].Summary.Vendor)

		docIDs := make([]string, 0, len(indexes))
		var amounts []float64
		typeSet := map[string]struct{}{}
		var types []string
		for _, i := range indexes {
			doc := g.Docs[i]
			docIDs = append(docIDs, doc.Document.ID)
			if doc.Summary.Amount != nil {
				amounts = append(amounts, *doc.Summary.Amount)
			}
			if t := doc.Summary.DocumentType; t != "" {
				if _, seen := typeSet[t]; !seen {
					typeSet[t] = struct{}{}
					types = append(types, t)
				}
			}
		}

		description := fmt.Sprintf("You have %d documents from %s.", len(indexes), vendor)
		if len(types) > 0 {
			description += fmt.Sprintf(" Document types: %s.", strings.Join(types, ", "))
		}

		expires := now.Add(cfg.VendorExpiry)
		out = append(out, model.Insight{
			Type:        model.InsightVendorPattern,
			Priority:    model.PriorityLow,
			Title:       fmt.Sprintf("Recurring vendor: %s", vendor),
			Description: description,
			Action:      fmt.Sprintf("View all documents from %s", vendor),
			DedupKey:    key,
			EntityID:    g.Entity.ID,
			EntityName:  g.Entity.Name,
			EntityType:  g.Entity.Type,
			RelatedDocs: docIDs,
			GeneratedAt: now,
			ExpiresAt:   &expires,
			Metadata: map[string]any{
				"category":       g.Category,
				"vendor":         vendor,
				"document_count": len(indexes),
				"types":          types,
				"amounts":        amounts,
			},
		})
	}
	return out
}

package insight

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// spendingDocTypes are the document types that carry a purchase amount
// worth rolling up.
var spendingDocTypes = map[string]struct{}{
	"receipt": {},
	"invoice": {},
	"bill":    {},
}

// detectSpendingSummary rolls up recent priced documents for one entity
// and category. Documents costing more than twice the group average are
// called out in the metadata.
func detectSpendingSummary(g group, now time.Time, cfg Config) []model.Insight {
	cutoff := now.Add(-cfg.SpendingWindow)

	type priced struct {
		docID  string
		vendor string
		amount float64
	}
	var items []priced
	for _, doc := range g.Docs {
		if doc.Summary.Amount == nil {
			continue
		}
		if _, ok := spendingDocTypes[strings.ToLower(doc.Summary.DocumentType)]; !ok {
			continue
		}
		if doc.Document.CapturedAt.Before(cutoff) {
			continue
		}
		items = append(items, priced{
			docID:  doc.Document.ID,
			vendor: strings.TrimSpace(doc.Summary.Vendor),
			amount: *doc.Summary.Amount,
		})
	}
	if len(items) < cfg.SpendingMinDocs {
		return nil
	}

	var total, maxAmount float64
	docIDs := make([]string, 0, len(items))
	vendorCounts := map[string]int{}
	for _, item := range items {
		total += item.amount
		if item.amount > maxAmount {
			maxAmount = item.amount
		}
		docIDs = append(docIDs, item.docID)
		if item.vendor != "" {
			vendorCounts[item.vendor]++
		}
	}
	average := total / float64(len(items))

	var highCost []string
	for _, item := range items {
		if item.amount > 2*average {
			highCost = append(highCost, item.docID)
		}
	}

	topVendors := rankVendors(vendorCounts, 5)
	periodDays := int(cfg.SpendingWindow.Hours() / 24)

	description := fmt.Sprintf("You have %d receipts/invoices totalling %.2f (average %.2f).",
		len(items), total, average)
	if len(topVendors) > 0 {
		description += fmt.Sprintf(" Top vendors: %s.", strings.Join(topVendors, ", "))
	}

	expires := now.Add(cfg.SpendingExpiry)
	return []model.Insight{{
		Type:        model.InsightSpendingSummary,
		Priority:    model.PriorityLow,
		Title:       fmt.Sprintf("Recent spending summary (last %d days)", periodDays),
		Description: description,
		Action:      "View all receipts and invoices",
		DedupKey:    "spending|" + g.Category,
		EntityID:    g.Entity.ID,
		EntityName:  g.Entity.Name,
		EntityType:  g.Entity.Type,
		RelatedDocs: docIDs,
		GeneratedAt: now,
		ExpiresAt:   &expires,
		Metadata: map[string]any{
			"category":       g.Category,
			"period_days":    periodDays,
			"document_count": len(items),
			"total_amount":   total,
			"average_amount": average,
			"max_amount":     maxAmount,
			"high_cost_docs": highCost,
		},
	}}
}

// rankVendors returns up to n "Vendor (count)" labels, busiest first.
func rankVendors(counts map[string]int, n int) []string {
	type entry struct {
		vendor string
		count  int
	}
	entries := make([]entry, 0, len(counts))
	for vendor, count := range counts {
		entries = append(entries, entry{vendor, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].vendor < entries[j].vendor
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%s (%d)", e.vendor, e.count))
	}
	return out
}

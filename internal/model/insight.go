package model

import "time"

// InsightType categorizes what kind of observation an insight is.
type InsightType string

// Insight type constants.
const (
	InsightVendorPattern   InsightType = "vendor_pattern"
	InsightSpendingSummary InsightType = "spending_summary"
	InsightUpcomingDate    InsightType = "upcoming_date"
	InsightAnomaly         InsightType = "anomaly"
	InsightRecommendation  InsightType = "recommendation"
)

// Priority indicates how urgently an insight needs attention.
type Priority string

// Priority constants.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a sortable weight where lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// InsightStatus tracks the lifecycle state of an insight.
type InsightStatus string

// Insight status constants.
const (
	InsightActive    InsightStatus = "active"
	InsightDismissed InsightStatus = "dismissed"
	InsightResolved  InsightStatus = "resolved"
)

// Insight is a derived, time-bounded observation about a group of
// documents. It is created by a detector run, refreshed (never duplicated)
// when the same underlying fact is re-observed, mutated by user status
// transitions, and eventually removed by the retention sweep.
type Insight struct {
	GeneratedAt time.Time
	ExpiresAt   *time.Time
	DismissedAt *time.Time
	Metadata    map[string]any
	ID          string
	Type        InsightType
	Priority    Priority
	Status      InsightStatus
	Title       string
	Description string
	Action      string // suggested next step, shown verbatim to the user
	// DedupKey discriminates insights of the same type for the same entity:
	// the vendor name for vendor patterns, the due date for upcoming dates.
	DedupKey    string
	EntityID    string
	EntityName  string
	EntityType  EntityType
	RelatedDocs []string
}

// CanTransition reports whether a status change is allowed. Undo paths
// back to active are permitted; there is no user-facing deleted state.
func (i *Insight) CanTransition(to InsightStatus) bool {
	switch to {
	case InsightActive:
		return i.Status == InsightDismissed || i.Status == InsightResolved
	case InsightDismissed, InsightResolved:
		return i.Status == InsightActive
	default:
		return false
	}
}

// Expired reports whether the insight's expiry has passed at the given time.
func (i *Insight) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}

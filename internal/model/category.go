package model

import "time"

// CategoryOther is the fallback category for documents that fit nothing
// else. It is excluded from insight detection.
const CategoryOther = "other"

// Category represents one life-admin category in the household taxonomy.
// The set is stored in the database and seeded by migration, so categories
// can be added or retired without touching detector code.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Description string
	ID          int
	IsActive    bool
}

// CategoryCorrection records a user overriding an automatically assigned
// category. Corrections are append-only and feed the classifier as
// few-shot examples, newest first.
type CategoryCorrection struct {
	CorrectedAt  time.Time
	ID           string
	DocumentID   string
	Filename     string
	DocumentType string
	Vendor       string
	OldCategory  string
	NewCategory  string
}

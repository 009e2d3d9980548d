package model

import "time"

// Document is a captured household document. The pipeline consumes it
// read-only; everything derived from it lives on the Summary.
type Document struct {
	CapturedAt time.Time
	ID         string
	Filename   string
	Text       string // extracted text (OCR or native)
}

// SummaryStatus indicates how a document's category was assigned.
type SummaryStatus string

// Summary status constants.
const (
	StatusUncategorized   SummaryStatus = "UNCATEGORIZED"
	StatusCategorizedByAI SummaryStatus = "CATEGORIZED_BY_AI"
	StatusUserModified    SummaryStatus = "USER_MODIFIED"
)

// Summary holds the derived annotations for one document: the extracted
// facts, the assigned category, and the resolved entity link.
type Summary struct {
	GeneratedAt      time.Time
	Amount           *float64 // parsed monetary amount, nil when none found
	DocumentID       string
	DocumentType     string // Invoice, Receipt, Letter, Statement, ...
	Vendor           string
	DateRaw          string // extracted date as the extractor reported it
	Text             string // one-sentence plain-language summary
	Category         string
	EntityID         string // resolved entity, empty until resolution runs
	Status           SummaryStatus
	EntityConfidence float64
}

// EntityHints carries the identity signals the extractor found in a
// document. Any subset may be empty; all of them may be wrong.
type EntityHints struct {
	PersonName   string
	Registration string // vehicle registration / make-model string
	PetName      string
	Address      string
}

// Empty reports whether no usable hint was extracted.
func (h EntityHints) Empty() bool {
	return h.PersonName == "" && h.Registration == "" && h.PetName == "" && h.Address == ""
}

// ExtractedFacts is the structured output of the external fact extractor
// for a single document. Fields are best-effort and may be missing.
type ExtractedFacts struct {
	Amount       *float64
	DocumentType string
	Vendor       string
	Date         string
	Summary      string
	Hints        EntityHints
}

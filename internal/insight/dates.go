package insight

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts lists the formats extracted dates show up in, day-first
// variants ahead of month-first since documents here are European.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January, 2006",
	"02.01.2006",
	"2006/01/02",
	"January 2006",
	"Jan 2006",
}

var ordinalRe = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)

// parseDate attempts to interpret an extracted date string. Extraction
// output is free text, so failure is normal and reported, not an error.
func parseDate(raw string) (time.Time, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return time.Time{}, false
	}
	cleaned = ordinalRe.ReplaceAllString(cleaned, "$1")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON returns the JSON payload from an LLM response that may be
// wrapped in a markdown code fence. Models sometimes return plain JSON,
// sometimes a fenced block, sometimes a fenced block with prose around it.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty response")
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return text, nil
	}

	if match := codeFenceRe.FindStringSubmatch(text); match != nil {
		candidate := strings.TrimSpace(match[1])
		if candidate != "" {
			return candidate, nil
		}
	}

	// Last resort: find the outermost JSON bracket pair.
	for _, open := range []string{"{", "["} {
		start := strings.Index(text, open)
		if start < 0 {
			continue
		}
		closing := "}"
		if open == "[" {
			closing = "]"
		}
		end := strings.LastIndex(text, closing)
		if end > start {
			return text[start : end+1], nil
		}
	}

	return "", fmt.Errorf("no JSON found in response")
}

var amountRe = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// parseAmount extracts a monetary value from a currency string like
// "€75.00", "$1,250.50" or "75". Returns nil when no number is present.
func parseAmount(raw string) *float64 {
	match := amountRe.FindString(raw)
	if match == "" {
		return nil
	}
	match = strings.ReplaceAll(match, ",", "")
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}

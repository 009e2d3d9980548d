package resolver

import (
	"strings"
	"unicode"
)

// normalizeName canonicalizes a free-text name for comparison: lowercased,
// punctuation collapsed to single spaces.
func normalizeName(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(v))
	lastSpace := false
	for _, r := range v {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r), r == '-', r == '_', r == '/', r == '.', r == ',', r == '\'':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// normalizeCompact canonicalizes registration plates and addresses, where
// separators are noise: uppercased with everything non-alphanumeric removed.
// OCR output writes "12-D-34567", "12 D 34567" and "12D34567" for the same
// plate.
func normalizeCompact(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range strings.ToUpper(strings.TrimSpace(v)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// similarity scores two already-normalized strings in [0,1]. The max of
// token Jaccard and normalized Levenshtein handles both reordered words
// ("John Smith" vs "Smith, John") and single-token typos.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	j := tokenJaccard(a, b)
	l := normalizedLevenshtein(a, b)
	if j > l {
		return j
	}
	return l
}

func tokenJaccard(a, b string) float64 {
	aSet := map[string]struct{}{}
	for _, t := range strings.Fields(a) {
		aSet[t] = struct{}{}
	}
	bSet := map[string]struct{}{}
	for _, t := range strings.Fields(b) {
		bSet[t] = struct{}{}
	}
	if len(aSet) == 0 && len(bSet) == 0 {
		return 1
	}
	inter := 0
	for t := range aSet {
		if _, ok := bSet[t]; ok {
			inter++
		}
	}
	union := len(aSet) + len(bSet) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func normalizedLevenshtein(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 && len(br) == 0 {
		return 1
	}
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}
	if maxLen == 0 {
		return 0
	}
	d := make([][]int, len(ar)+1)
	for i := range d {
		d[i] = make([]int, len(br)+1)
	}
	for i := 0; i <= len(ar); i++ {
		d[i][0] = i
	}
	for j := 0; j <= len(br); j++ {
		d[0][j] = j
	}
	for i := 1; i <= len(ar); i++ {
		for j := 1; j <= len(br); j++ {
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			d[i][j] = minInt(del, minInt(ins, sub))
		}
	}
	dist := d[len(ar)][len(br)]
	return 1 - float64(dist)/float64(maxLen)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2026-03-05", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"05/03/2026", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"5 March 2026", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"5th March 2026", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"March 5, 2026", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"  5  Mar   2026 ", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"05.03.2026", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"March 2026", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"sometime in spring", time.Time{}, false},
		{"", time.Time{}, false},
		{"31/02/2026", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseDate(tt.input)
			if !tt.ok {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"No NCT certificate on file", "no-nct-certificate-on-file"},
		{"Premium up 40%!", "premium-up-40"},
		{"  spaced   out  ", "spaced-out"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), "slugify(%q)", tt.in)
	}
}

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Alice Murphy", "alice murphy"},
		{"  MURPHY,   Alice ", "murphy alice"},
		{"O'Brien-Smith", "o brien smith"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeName(tt.in), "normalizeName(%q)", tt.in)
	}
}

func TestNormalizeCompact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12-D-34567", "12D34567"},
		{"12 d 34567", "12D34567"},
		{"14 Oak Road, Dublin 6", "14OAKROADDUBLIN6"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeCompact(tt.in), "normalizeCompact(%q)", tt.in)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "alice murphy", "alice murphy", 1, 1},
		{"reordered tokens", "murphy alice", "alice murphy", 1, 1},
		{"one char typo", "12D34567", "12D34557", 0.8, 0.95},
		{"disjoint", "rex", "bella", 0, 0.3},
		{"empty side", "", "alice", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := similarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

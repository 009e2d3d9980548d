package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, false},
		{"bare array", `[1, 2]`, `[1, 2]`, false},
		{
			"json fence",
			"```json\n{\"a\": 1}\n```",
			`{"a": 1}`,
			false,
		},
		{
			"anonymous fence",
			"```\n[{\"a\": 1}]\n```",
			`[{"a": 1}]`,
			false,
		},
		{
			"prose around object",
			"Here is the result: {\"a\": 1} hope that helps",
			`{"a": 1}`,
			false,
		},
		{
			"nested braces",
			"answer: {\"outer\": {\"inner\": 2}} done",
			`{"outer": {"inner": 2}}`,
			false,
		},
		{"no json at all", "I could not find anything.", "", true},
		{"empty input", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		isNil bool
	}{
		{"euro symbol", "€75.00", 75.0, false},
		{"dollar symbol", "$20.50", 20.5, false},
		{"thousands separator", "1,234.56", 1234.56, false},
		{"prefixed text", "EUR 99", 99.0, false},
		{"negative", "-12.00", -12.0, false},
		{"empty", "", 0, true},
		{"no digits", "n/a", 0, true},
		{"null literal", "null", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAmount(tt.input)
			if tt.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 0.001)
		})
	}
}

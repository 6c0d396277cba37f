package classifier

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/notebook/internal/taxonomy"
)

func TestSanitizeTags(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{
			name: "normalizes and collapses duplicates",
			raw:  []any{"Tax Planning!", "tax-planning", "TAX PLANNING", "a b c d"},
			want: []string{"tax planning", "a b"},
		},
		{
			name: "not an array",
			raw:  "tax planning",
			want: []string{},
		},
		{
			name: "nil",
			raw:  nil,
			want: []string{},
		},
		{
			name: "non-string elements dropped",
			raw:  []any{1.0, "Go", nil, map[string]any{"x": 1}, true, "Rust"},
			want: []string{"go", "rust"},
		},
		{
			name: "empty after cleaning dropped",
			raw:  []any{"!!!", "   ", "-", "ok"},
			want: []string{"ok"},
		},
		{
			name: "capped at six",
			raw:  []any{"a", "b", "c", "d", "e", "f", "g", "h"},
			want: []string{"a", "b", "c", "d", "e", "f"},
		},
		{
			name: "fewer than three is not an error",
			raw:  []any{"solo"},
			want: []string{"solo"},
		},
		{
			name: "string slice input",
			raw:  []string{"  Retirement   Accounts  ", "IRA's"},
			want: []string{"retirement accounts", "iras"},
		},
		{
			name: "digits and unicode letters kept",
			raw:  []any{"Form 1040", "Café Crème"},
			want: []string{"form 1040", "café crème"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTags(tt.raw))
		})
	}
}

func TestSanitizeTagsProperties(t *testing.T) {
	inputs := [][]any{
		{"Hello, World!", "hello world", "HELLO   WORLD", "x.y.z", "one two three four"},
		{"A", "a", "B!", "b?", "C", "c", "D", "E", "F", "G"},
		{"---", "@@@", "#go", "$money$", "100%"},
	}
	for _, in := range inputs {
		out := SanitizeTags(in)
		assert.LessOrEqual(t, len(out), MaxTags)

		seen := map[string]bool{}
		for _, tag := range out {
			assert.False(t, seen[tag], "duplicate tag %q", tag)
			seen[tag] = true
			assert.Equal(t, strings.ToLower(tag), tag)
			assert.LessOrEqual(t, len(strings.Fields(tag)), MaxTagWords)
			for _, r := range tag {
				assert.True(t, unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ', "unexpected rune %q in %q", r, tag)
			}
		}
	}
}

func TestTagsFromPayload(t *testing.T) {
	assert.Equal(t, []string{"go", "sqlite"}, TagsFromPayload(map[string]any{"tags": []any{"Go", "SQLite"}}))
	assert.Equal(t, []string{"go"}, TagsFromPayload([]any{"go"}))
	assert.Equal(t, []string{}, TagsFromPayload(map[string]any{"labels": []any{"go"}}))
}

func TestSanitizeCategoryClassification(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Classification
	}{
		{
			name: "valid payload",
			raw:  map[string]any{"category": "procedure", "confidence": 0.8, "rationale": "  steps to file  "},
			want: Classification{Category: taxonomy.Procedure, Confidence: 0.8, Rationale: "steps to file"},
		},
		{
			name: "bogus category",
			raw:  map[string]any{"category": "bogus"},
			want: Classification{Category: taxonomy.Other, Confidence: 0.5, Rationale: ""},
		},
		{
			name: "nil from failed parse",
			raw:  nil,
			want: Classification{Category: taxonomy.Other, Confidence: 0.5},
		},
		{
			name: "not an object",
			raw:  []any{"procedure"},
			want: Classification{Category: taxonomy.Other, Confidence: 0.5},
		},
		{
			name: "confidence above one",
			raw:  map[string]any{"category": "reference", "confidence": 1.5},
			want: Classification{Category: taxonomy.Reference, Confidence: 1},
		},
		{
			name: "confidence below zero",
			raw:  map[string]any{"confidence": -3.0},
			want: Classification{Category: taxonomy.Other, Confidence: 0},
		},
		{
			name: "numeric string confidence",
			raw:  map[string]any{"confidence": " 0.25 "},
			want: Classification{Category: taxonomy.Other, Confidence: 0.25},
		},
		{
			name: "garbage string confidence",
			raw:  map[string]any{"confidence": "abc"},
			want: Classification{Category: taxonomy.Other, Confidence: 0.5},
		},
		{
			name: "json number confidence",
			raw:  map[string]any{"confidence": json.Number("0.9")},
			want: Classification{Category: taxonomy.Other, Confidence: 0.9},
		},
		{
			name: "NaN confidence",
			raw:  map[string]any{"confidence": math.NaN()},
			want: Classification{Category: taxonomy.Other, Confidence: 0.5},
		},
		{
			name: "infinite string confidence",
			raw:  map[string]any{"confidence": "Inf"},
			want: Classification{Category: taxonomy.Other, Confidence: 0.5},
		},
		{
			name: "case mismatch falls back",
			raw:  map[string]any{"category": "Procedure"},
			want: Classification{Category: taxonomy.Other, Confidence: 0.5},
		},
		{
			name: "non-string rationale",
			raw:  map[string]any{"rationale": 42.0},
			want: Classification{Category: taxonomy.Other, Confidence: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeCategoryClassification(tt.raw))
		})
	}
}

func TestSanitizeCategoryRationaleTruncated(t *testing.T) {
	long := strings.Repeat("é", 250)
	got := SanitizeCategoryClassification(map[string]any{"rationale": long})
	assert.Equal(t, MaxRationaleLen, len([]rune(got.Rationale)))
}

func TestDecodeJSON(t *testing.T) {
	v, err := DecodeJSON("```json\n{\"category\":\"reference\",\"confidence\":0.7}\n```")
	require.NoError(t, err)
	got := SanitizeCategoryClassification(v)
	assert.Equal(t, taxonomy.Reference, got.Category)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)

	v, err = DecodeJSON(`["a","b"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, SanitizeTags(v))

	for _, bad := range []string{"", "   ", "not json", `{"a":1} trailing`, `{"a":`} {
		_, err := DecodeJSON(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

package classifier

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pbaille/notebook/internal/taxonomy"
)

const (
	// MaxTags caps the sanitized tag list.
	MaxTags = 6
	// MaxTagWords is the number of words kept per tag.
	MaxTagWords = 2
	// MaxRationaleLen is the rationale limit in characters.
	MaxRationaleLen = 200
	// DefaultConfidence replaces missing or non-finite confidence values.
	DefaultConfidence = 0.5
)

var lower = cases.Lower(language.Und)

// Classification is the sanitized category result. Every field is always set
// to a valid value.
type Classification struct {
	Category   taxonomy.Category `json:"category"`
	Confidence float64           `json:"confidence"`
	Rationale  string            `json:"rationale"`
}

// SanitizeTags turns an arbitrary decoded value into a clean tag list. It
// never fails: anything unusable is dropped.
func SanitizeTags(raw any) []string {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		return []string{}
	}

	out := make([]string, 0, MaxTags)
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		tag := cleanTag(s)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// TagsFromPayload extracts the tag list from a decoded model payload. Both
// {"tags": [...]} and a bare array are accepted.
func TagsFromPayload(raw any) []string {
	if obj, ok := raw.(map[string]any); ok {
		return SanitizeTags(obj["tags"])
	}
	return SanitizeTags(raw)
}

func cleanTag(s string) string {
	s = lower.String(s)

	var sb strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r), r == '-':
			// Hyphens split words like whitespace does, so "tax-planning"
			// and "tax planning" name the same tag.
			sb.WriteRune(' ')
		}
	}

	words := strings.Fields(sb.String())
	if len(words) > MaxTagWords {
		words = words[:MaxTagWords]
	}
	return strings.Join(words, " ")
}

// SanitizeCategoryClassification turns an arbitrary decoded value (nil when
// decoding failed upstream) into a safe classification.
func SanitizeCategoryClassification(raw any) Classification {
	obj, _ := raw.(map[string]any)

	out := Classification{
		Category:   taxonomy.Fallback,
		Confidence: DefaultConfidence,
	}
	if s, ok := obj["category"].(string); ok {
		out.Category = taxonomy.CoerceCategory(s)
	}
	if n, ok := toNumber(obj["confidence"]); ok {
		out.Confidence = clamp01(n)
	}
	out.Rationale = shortString(obj["rationale"], MaxRationaleLen)
	return out
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func clamp01(n float64) float64 {
	switch {
	case math.IsNaN(n), math.IsInf(n, 0):
		return DefaultConfidence
	case n < 0:
		return 0
	case n > 1:
		return 1
	}
	return n
}

func shortString(v any, maxLen int) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

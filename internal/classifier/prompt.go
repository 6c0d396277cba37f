package classifier

import (
	"strings"

	"github.com/pbaille/notebook/internal/taxonomy"
)

// Prompt versions recorded in provenance. Bump when the rendered text changes.
const (
	SummaryPromptVersion  = "summary-v1"
	TagsPromptVersion     = "tags-v1"
	CategoryPromptVersion = "category-v1"
)

// System instructions sent alongside the rendered prompts.
const (
	SummarySystem = "You write short, factual summaries of personal notes."
	JSONSystem    = "You are a careful classifier. Respond with a single JSON object and nothing else."
)

// CategoryPrompt renders the classification prompt for an entry. Output is
// byte-identical for identical input.
func CategoryPrompt(title, content string) string {
	var sb strings.Builder

	sb.WriteString("You are classifying an entry into exactly one category.\n\n")
	sb.WriteString("Allowed categories:\n")
	for _, c := range taxonomy.Categories() {
		sb.WriteString("- ")
		sb.WriteString(string(c))
		sb.WriteString("\n")
	}
	sb.WriteString(`
Return ONLY valid JSON with EXACTLY these keys:
- "category": one of the allowed categories
- "confidence": a number from 0.0 to 1.0
- "rationale": 1-2 sentences max, grounded in the title/content, no sensitive data, max 200 characters

No markdown. No code fences. No additional keys. No extra text.
`)
	writeSource(&sb, title, content)

	return sb.String()
}

// TagsPrompt renders the tag generation prompt for an entry.
func TagsPrompt(title, content string) string {
	var sb strings.Builder

	sb.WriteString("Suggest tags for this entry. Return JSON only.\n\n")
	sb.WriteString(`Return a JSON object with this structure:
{"tags": ["tag one", "tag two", "tag three"]}

Rules:
- 3 to 6 tags
- Each tag is lowercase, at most 2 words, no punctuation
- No duplicate tags
- Tags describe the topic, not the format of the entry

No markdown. No code fences. No additional keys. No extra text.
`)
	writeSource(&sb, title, content)

	return sb.String()
}

// SummaryPrompt renders the free-text summary instruction for an entry.
func SummaryPrompt(title, content string) string {
	var sb strings.Builder

	sb.WriteString("Summarize this entry in at most 2 sentences (240 characters max).\n")
	sb.WriteString("Plain text only. Do not invent facts that are not in the entry.\n")
	writeSource(&sb, title, content)

	return sb.String()
}

func writeSource(sb *strings.Builder, title, content string) {
	sb.WriteString("\nTITLE:\n")
	sb.WriteString(title)
	sb.WriteString("\n\nCONTENT:\n")
	sb.WriteString(content)
}

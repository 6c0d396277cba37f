package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pbaille/notebook/internal/taxonomy"
)

func TestCategoryPromptDeterministic(t *testing.T) {
	a := CategoryPrompt("Roth conversion", "Steps for converting a traditional IRA.")
	b := CategoryPrompt("Roth conversion", "Steps for converting a traditional IRA.")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, CategoryPrompt("Roth conversion", "Different content."))
}

func TestCategoryPromptEmbedsTaxonomyAndContract(t *testing.T) {
	p := CategoryPrompt("Title here", "Body here")

	for _, c := range taxonomy.Categories() {
		assert.Contains(t, p, "- "+string(c)+"\n")
	}
	for _, key := range []string{`"category"`, `"confidence"`, `"rationale"`, "200 characters"} {
		assert.Contains(t, p, key)
	}
	assert.True(t, strings.HasSuffix(p, "TITLE:\nTitle here\n\nCONTENT:\nBody here"))
	for _, o := range taxonomy.OverrideOptions() {
		if o == "Other" {
			continue
		}
		assert.NotContains(t, p, string(o))
	}
}

func TestTagsAndSummaryPrompts(t *testing.T) {
	tags := TagsPrompt("Foo", "")
	assert.Contains(t, tags, `"tags"`)
	assert.Contains(t, tags, "TITLE:\nFoo")
	assert.Equal(t, tags, TagsPrompt("Foo", ""))

	summary := SummaryPrompt("Foo", "bar baz")
	assert.Contains(t, summary, "CONTENT:\nbar baz")
	assert.NotContains(t, summary, "JSON")
}

func TestPromptKeepsSourceVerbatim(t *testing.T) {
	content := "  line one\n\tline two {\"json\": true}  "
	p := TagsPrompt("T", content)
	assert.Contains(t, p, content)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pbaille/notebook/internal/taxonomy"
)

func TestParseReviewStatus(t *testing.T) {
	assert.Equal(t, ReviewAuto, ParseReviewStatus(""))
	assert.Equal(t, ReviewAuto, ParseReviewStatus("auto"))
	assert.Equal(t, ReviewAuto, ParseReviewStatus("garbage"))
	assert.Equal(t, ReviewReviewed, ParseReviewStatus("reviewed"))
	assert.Equal(t, ReviewOverridden, ParseReviewStatus(" overridden "))
}

func TestEffectiveCategory(t *testing.T) {
	e := &Entry{}
	assert.Equal(t, "", e.EffectiveCategory())

	e.Category = &CategoryField{Category: taxonomy.Procedure}
	assert.Equal(t, "procedure", e.EffectiveCategory())

	e.Review = CategoryReview{Status: ReviewOverridden, Override: "Tax Rules"}
	assert.Equal(t, "Tax Rules", e.EffectiveCategory())
}

func TestHasHelpers(t *testing.T) {
	e := &Entry{}
	assert.False(t, e.HasSummary())
	assert.False(t, e.HasTags())
	assert.False(t, e.HasCategory())

	e.Summary = &SummaryField{Text: "  "}
	e.Tags = &TagsField{Tags: []string{}}
	assert.False(t, e.HasSummary())
	assert.False(t, e.HasTags())

	e.Summary.Text = "ok"
	e.Tags.Tags = []string{"go"}
	assert.True(t, e.HasSummary())
	assert.True(t, e.HasTags())
	assert.Equal(t, []string{"go"}, e.TagNames())
}

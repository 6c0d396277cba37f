package domain

import (
	"strings"
	"time"

	"github.com/pbaille/notebook/internal/taxonomy"
)

// Source types recorded on an entry.
const (
	SourceNote = "note"
	SourceWeb  = "web"
)

// ModelNone is the provenance model recorded when a canned default was stored
// without calling the model.
const ModelNone = "none"

// Entry is a note with its AI-derived field groups and review state.
type Entry struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	SourceType string    `json:"source_type,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Summary  *SummaryField  `json:"summary,omitempty"`
	Tags     *TagsField     `json:"tags,omitempty"`
	Category *CategoryField `json:"category,omitempty"`
	Review   CategoryReview `json:"review"`
}

// Provenance records what produced a derived value.
type Provenance struct {
	Model         string `json:"model"`
	SchemaVersion int    `json:"schema_version"`
	PromptVersion string `json:"prompt_version,omitempty"`
}

// SummaryField is the summary group.
type SummaryField struct {
	Text       string     `json:"text"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Provenance Provenance `json:"provenance"`
}

// TagsField is the tags group. Tags keep generation order.
type TagsField struct {
	Tags       []string   `json:"tags"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Provenance Provenance `json:"provenance"`
}

// CategoryField is the AI category group.
type CategoryField struct {
	Category   taxonomy.Category `json:"category"`
	Confidence float64           `json:"confidence"`
	Rationale  string            `json:"rationale,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Provenance Provenance        `json:"provenance"`
}

// ReviewStatus tracks the human disposition of the AI category.
type ReviewStatus string

const (
	ReviewAuto       ReviewStatus = "auto"
	ReviewReviewed   ReviewStatus = "reviewed"
	ReviewOverridden ReviewStatus = "overridden"
)

// ParseReviewStatus maps a stored value to a status. Empty and unknown
// values read as auto.
func ParseReviewStatus(s string) ReviewStatus {
	switch ReviewStatus(strings.TrimSpace(s)) {
	case ReviewReviewed:
		return ReviewReviewed
	case ReviewOverridden:
		return ReviewOverridden
	default:
		return ReviewAuto
	}
}

// CategoryReview is the human review state of the category.
type CategoryReview struct {
	Status         ReviewStatus      `json:"status"`
	Override       taxonomy.Override `json:"override,omitempty"`
	OverrideReason string            `json:"override_reason,omitempty"`
	OverriddenAt   *time.Time        `json:"overridden_at,omitempty"`
}

// HasOverride reports whether a human override is active.
func (r CategoryReview) HasOverride() bool {
	return r.Override != ""
}

// HasSummary reports whether the summary group holds a value.
func (e *Entry) HasSummary() bool {
	return e.Summary != nil && strings.TrimSpace(e.Summary.Text) != ""
}

// HasTags reports whether the tags group holds at least one tag.
func (e *Entry) HasTags() bool {
	return e.Tags != nil && len(e.Tags.Tags) > 0
}

// HasCategory reports whether an AI category has been stored.
func (e *Entry) HasCategory() bool {
	return e.Category != nil && e.Category.Category != ""
}

// EffectiveCategory is the label shown to readers: the override when one is
// active, otherwise the AI category. Empty when neither exists.
func (e *Entry) EffectiveCategory() string {
	if e.Review.HasOverride() {
		return string(e.Review.Override)
	}
	if e.HasCategory() {
		return string(e.Category.Category)
	}
	return ""
}

// TagNames returns the tag list, or nil when no tags are stored.
func (e *Entry) TagNames() []string {
	if e.Tags == nil {
		return nil
	}
	return e.Tags.Tags
}

// Tag is a tag name with the number of entries carrying it.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Entries   int       `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
}

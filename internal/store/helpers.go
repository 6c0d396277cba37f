package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/taxonomy"
)

const entryColumns = `id, title, content, source_type, source_url, created_at, updated_at,
	summary, summary_updated_at, summary_model, summary_version, summary_prompt_version,
	tags_updated_at, tags_model, tags_version, tags_prompt_version,
	category, category_confidence, category_rationale, category_updated_at,
	category_model, category_version, category_prompt_version,
	category_review_status, category_override, category_override_reason, category_overridden_at`

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*domain.Entry, error) {
	var (
		e          domain.Entry
		content    sql.NullString
		sourceType sql.NullString
		sourceURL  sql.NullString
		createdRaw string
		updatedRaw string

		summary              sql.NullString
		summaryUpdated       sql.NullString
		summaryModel         sql.NullString
		summaryVersion       sql.NullInt64
		summaryPromptVersion sql.NullString

		tagsUpdated       sql.NullString
		tagsModel         sql.NullString
		tagsVersion       sql.NullInt64
		tagsPromptVersion sql.NullString

		category              sql.NullString
		categoryConfidence    sql.NullFloat64
		categoryRationale     sql.NullString
		categoryUpdated       sql.NullString
		categoryModel         sql.NullString
		categoryVersion       sql.NullInt64
		categoryPromptVersion sql.NullString

		reviewStatus   sql.NullString
		override       sql.NullString
		overrideReason sql.NullString
		overriddenAt   sql.NullString
	)

	if err := scanner.Scan(
		&e.ID, &e.Title, &content, &sourceType, &sourceURL, &createdRaw, &updatedRaw,
		&summary, &summaryUpdated, &summaryModel, &summaryVersion, &summaryPromptVersion,
		&tagsUpdated, &tagsModel, &tagsVersion, &tagsPromptVersion,
		&category, &categoryConfidence, &categoryRationale, &categoryUpdated,
		&categoryModel, &categoryVersion, &categoryPromptVersion,
		&reviewStatus, &override, &overrideReason, &overriddenAt,
	); err != nil {
		return nil, err
	}

	e.Content = content.String
	e.SourceType = sourceType.String
	e.SourceURL = sourceURL.String
	e.CreatedAt = parseTime(createdRaw)
	e.UpdatedAt = parseTime(updatedRaw)

	if summary.Valid {
		e.Summary = &domain.SummaryField{
			Text:      summary.String,
			UpdatedAt: parseTime(summaryUpdated.String),
			Provenance: domain.Provenance{
				Model:         summaryModel.String,
				SchemaVersion: int(summaryVersion.Int64),
				PromptVersion: summaryPromptVersion.String,
			},
		}
	}
	if tagsUpdated.Valid {
		e.Tags = &domain.TagsField{
			Tags:      []string{},
			UpdatedAt: parseTime(tagsUpdated.String),
			Provenance: domain.Provenance{
				Model:         tagsModel.String,
				SchemaVersion: int(tagsVersion.Int64),
				PromptVersion: tagsPromptVersion.String,
			},
		}
	}
	if category.Valid && category.String != "" {
		e.Category = &domain.CategoryField{
			Category:   taxonomy.Category(category.String),
			Confidence: categoryConfidence.Float64,
			Rationale:  categoryRationale.String,
			UpdatedAt:  parseTime(categoryUpdated.String),
			Provenance: domain.Provenance{
				Model:         categoryModel.String,
				SchemaVersion: int(categoryVersion.Int64),
				PromptVersion: categoryPromptVersion.String,
			},
		}
	}

	e.Review = domain.CategoryReview{
		Status:         domain.ParseReviewStatus(reviewStatus.String),
		Override:       taxonomy.Override(override.String),
		OverrideReason: overrideReason.String,
	}
	if overriddenAt.Valid {
		at := parseTime(overriddenAt.String)
		e.Review.OverriddenAt = &at
	}
	return &e, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/taxonomy"
)

// The Apply* writes are the atomic form of the enrichment guardrail: the
// value and its provenance are stored only when the field is currently empty,
// unless force is set. They report whether the row was written; false means
// the entry is missing or the field was already populated.

// blankChars is the ASCII whitespace set, so a summary SQLite sees as blank
// is also blank to domain.Entry.HasSummary.
const blankChars = "' ' || char(9) || char(10) || char(11) || char(12) || char(13)"

// ApplySummary stores a generated summary.
func (s *Store) ApplySummary(ctx context.Context, id int64, text string, prov domain.Provenance, at time.Time, force bool) (bool, error) {
	stamp := formatTime(at)
	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET summary = ?, summary_updated_at = ?, summary_model = ?,
		    summary_version = ?, summary_prompt_version = ?, updated_at = ?
		WHERE id = ? AND (? OR summary IS NULL OR trim(summary, `+blankChars+`) = '')`,
		text, stamp, prov.Model, prov.SchemaVersion, nullableString(prov.PromptVersion), stamp,
		id, force,
	)
	if err != nil {
		return false, fmt.Errorf("apply summary: %w", err)
	}
	return affectedOne(res)
}

// ApplyTags stores a generated tag list in order. Tags are considered
// empty when the entry has no tag links.
func (s *Store) ApplyTags(ctx context.Context, id int64, tags []string, prov domain.Provenance, at time.Time, force bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tags tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stamp := formatTime(at)
	res, err := tx.ExecContext(ctx, `
		UPDATE entries
		SET tags_updated_at = ?, tags_model = ?, tags_version = ?,
		    tags_prompt_version = ?, updated_at = ?
		WHERE id = ? AND (? OR NOT EXISTS (
		    SELECT 1 FROM entry_tags et WHERE et.entry_id = entries.id
		))`,
		stamp, prov.Model, prov.SchemaVersion, nullableString(prov.PromptVersion), stamp,
		id, force,
	)
	if err != nil {
		return false, fmt.Errorf("apply tags: %w", err)
	}
	applied, err := affectedOne(res)
	if err != nil || !applied {
		return false, err
	}

	if err := replaceEntryTags(ctx, tx, id, tags); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tags: %w", err)
	}
	return true, nil
}

// CategoryValue is a sanitized AI classification ready to store.
type CategoryValue struct {
	Category   taxonomy.Category
	Confidence float64
	Rationale  string
}

// ApplyCategory stores a generated AI category. Review state is untouched.
func (s *Store) ApplyCategory(ctx context.Context, id int64, v CategoryValue, prov domain.Provenance, at time.Time, force bool) (bool, error) {
	stamp := formatTime(at)
	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET category = ?, category_confidence = ?, category_rationale = ?,
		    category_updated_at = ?, category_model = ?, category_version = ?,
		    category_prompt_version = ?, updated_at = ?
		WHERE id = ? AND (? OR category IS NULL OR category = '')`,
		string(v.Category), v.Confidence, nullableString(strings.TrimSpace(v.Rationale)),
		stamp, prov.Model, prov.SchemaVersion, nullableString(prov.PromptVersion), stamp,
		id, force,
	)
	if err != nil {
		return false, fmt.Errorf("apply category: %w", err)
	}
	return affectedOne(res)
}

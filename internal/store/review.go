package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/taxonomy"
)

// SetCategoryOverride records a human override and moves the entry to the
// overridden state. It reports whether the entry exists. Callers validate
// the override value.
func (s *Store) SetCategoryOverride(ctx context.Context, id int64, override taxonomy.Override, reason string, at time.Time) (bool, error) {
	stamp := formatTime(at)
	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET category_override = ?, category_override_reason = ?,
		    category_review_status = ?, category_overridden_at = ?, updated_at = ?
		WHERE id = ?`,
		string(override), reason, string(domain.ReviewOverridden), stamp, stamp, id,
	)
	if err != nil {
		return false, fmt.Errorf("set category override: %w", err)
	}
	return affectedOne(res)
}

// ClearCategoryOverride drops any override and returns the entry to auto.
func (s *Store) ClearCategoryOverride(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET category_override = NULL, category_override_reason = NULL,
		    category_overridden_at = NULL, category_review_status = ?, updated_at = ?
		WHERE id = ?`,
		string(domain.ReviewAuto), formatTime(at), id,
	)
	if err != nil {
		return false, fmt.Errorf("clear category override: %w", err)
	}
	return affectedOne(res)
}

// MarkCategoryReviewed accepts the AI category as-is. The write only happens
// when no override is active; false means the entry is missing or overridden.
func (s *Store) MarkCategoryReviewed(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET category_review_status = ?, updated_at = ?
		WHERE id = ? AND (category_override IS NULL OR category_override = '')`,
		string(domain.ReviewReviewed), formatTime(at), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark category reviewed: %w", err)
	}
	return affectedOne(res)
}

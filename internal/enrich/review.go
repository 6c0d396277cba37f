package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/taxonomy"
)

// Review actions used in logs and metrics.
const (
	ActionOverride = "override"
	ActionClear    = "clear"
	ActionReviewed = "reviewed"
)

// SetCategoryOverride replaces the effective category with a human label.
// The value must be one of taxonomy.OverrideOptions; reason may be empty.
func (s *Service) SetCategoryOverride(ctx context.Context, id int64, override, reason string) (*domain.Entry, error) {
	const op = "set category override"
	if id <= 0 {
		return nil, wrap(ErrInvalidID, op, fmt.Sprintf("id %d", id), nil)
	}
	if !taxonomy.IsOverride(override) {
		return nil, wrap(ErrInvalidOverride, op, fmt.Sprintf("%q is not an override option", override), nil)
	}
	log := s.opLogger(FieldCategory, id, false)

	applied, err := s.store.SetCategoryOverride(ctx, id, taxonomy.Override(override), reason, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		return nil, wrap(ErrNotFound, op, fmt.Sprintf("entry %d", id), nil)
	}
	return s.reviewed(ctx, log, op, id, ActionOverride, slog.String("override", override))
}

// ClearCategoryOverride drops any override and returns the review to auto.
func (s *Service) ClearCategoryOverride(ctx context.Context, id int64) (*domain.Entry, error) {
	const op = "clear category override"
	if id <= 0 {
		return nil, wrap(ErrInvalidID, op, fmt.Sprintf("id %d", id), nil)
	}
	log := s.opLogger(FieldCategory, id, false)

	applied, err := s.store.ClearCategoryOverride(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		return nil, wrap(ErrNotFound, op, fmt.Sprintf("entry %d", id), nil)
	}
	return s.reviewed(ctx, log, op, id, ActionClear)
}

// MarkCategoryReviewed accepts the AI category. It fails with
// ErrOverrideActive while an override is set.
func (s *Service) MarkCategoryReviewed(ctx context.Context, id int64) (*domain.Entry, error) {
	const op = "mark category reviewed"
	if id <= 0 {
		return nil, wrap(ErrInvalidID, op, fmt.Sprintf("id %d", id), nil)
	}
	log := s.opLogger(FieldCategory, id, false)

	applied, err := s.store.MarkCategoryReviewed(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		entry, err := s.store.GetEntry(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if entry == nil {
			return nil, wrap(ErrNotFound, op, fmt.Sprintf("entry %d", id), nil)
		}
		log.Info("review rejected, override active", slog.String("override", string(entry.Review.Override)))
		return nil, wrap(ErrOverrideActive, op, "clear the override first", nil)
	}
	return s.reviewed(ctx, log, op, id, ActionReviewed)
}

func (s *Service) reviewed(ctx context.Context, log *slog.Logger, op string, id int64, action string, attrs ...any) (*domain.Entry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: reload entry: %w", op, err)
	}
	if entry == nil {
		return nil, wrap(ErrNotFound, op, fmt.Sprintf("entry %d", id), nil)
	}
	log.Info("category review updated", append([]any{slog.String("action", action)}, attrs...)...)
	s.metrics.ReviewTransition(action)
	s.invalidate(ctx, log, entry)
	return entry, nil
}

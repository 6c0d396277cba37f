package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/notebook/internal/domain"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// getOrCreateTag finds a tag by name or creates it
func getOrCreateTag(ctx context.Context, q queryer, name string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find tag: %w", err)
	}

	id = uuid.New().String()
	if _, err := q.ExecContext(ctx,
		"INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)",
		id, name, formatTime(time.Now()),
	); err != nil {
		return "", fmt.Errorf("insert tag: %w", err)
	}
	return id, nil
}

// replaceEntryTags links the entry to tags in the given order, dropping any
// previous links.
func replaceEntryTags(ctx context.Context, q queryer, entryID int64, tags []string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM entry_tags WHERE entry_id = ?", entryID); err != nil {
		return fmt.Errorf("unlink entry tags: %w", err)
	}
	for pos, name := range tags {
		tagID, err := getOrCreateTag(ctx, q, name)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			"INSERT OR REPLACE INTO entry_tags (entry_id, tag_id, position) VALUES (?, ?, ?)",
			entryID, tagID, pos,
		); err != nil {
			return fmt.Errorf("link entry tag: %w", err)
		}
	}
	return nil
}

// entryTags returns the tag names of an entry in generation order.
func entryTags(ctx context.Context, q queryer, entryID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.name
		FROM tags t
		JOIN entry_tags et ON t.id = et.tag_id
		WHERE et.entry_id = ?
		ORDER BY et.position
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("get entry tags: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) attachTags(ctx context.Context, e *domain.Entry) error {
	if e.Tags == nil {
		return nil
	}
	names, err := entryTags(ctx, s.db, e.ID)
	if err != nil {
		return err
	}
	if names != nil {
		e.Tags.Tags = names
	}
	return nil
}

// ListTags returns tags in use with the number of entries carrying each.
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at, COUNT(et.entry_id)
		FROM tags t
		JOIN entry_tags et ON t.id = et.tag_id
		GROUP BY t.id
		ORDER BY t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var (
			t       domain.Tag
			created string
		)
		if err := rows.Scan(&t.ID, &t.Name, &created, &t.Entries); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		t.CreatedAt = parseTime(created)
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

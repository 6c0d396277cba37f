package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/notebook/internal/domain"
)

//go:embed schema.sql
var schema string

// ErrTitleRequired is returned when an entry would be saved without a title.
var ErrTitleRequired = errors.New("title is required")

// Sort orders for entry listings.
const (
	SortCreated = "created"
	SortUpdated = "updated"
)

// DefaultPageSize is the listing page size when none is given.
const DefaultPageSize = 5

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_txlock", "immediate")
	dsn := "file:" + dbPath + "?" + params.Encode()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewEntry holds the fields of an entry being created.
type NewEntry struct {
	Title      string
	Content    string
	SourceType string
	SourceURL  string
}

// CreateEntry inserts an entry and returns it.
func (s *Store) CreateEntry(ctx context.Context, in NewEntry) (*domain.Entry, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	sourceType := strings.TrimSpace(in.SourceType)
	if sourceType == "" {
		sourceType = domain.SourceNote
	}
	now := formatTime(time.Now())

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (title, content, source_type, source_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title,
		nullableString(strings.TrimSpace(in.Content)),
		sourceType,
		nullableString(strings.TrimSpace(in.SourceURL)),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetEntry(ctx, id)
}

// GetEntry retrieves an entry by ID with its tags. It returns (nil, nil)
// when no entry has that ID.
func (s *Store) GetEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if err := s.attachTags(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateEntry replaces the title and content of an entry. It returns
// (nil, nil) when the entry does not exist.
func (s *Store) UpdateEntry(ctx context.Context, id int64, title, content string) (*domain.Entry, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE entries SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		title,
		nullableString(strings.TrimSpace(content)),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	if ok, err := affectedOne(res); err != nil || !ok {
		return nil, err
	}
	return s.GetEntry(ctx, id)
}

// DeleteEntry removes an entry and its tag links. It reports whether a row
// was deleted.
func (s *Store) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return affectedOne(res)
}

// ListQuery selects a page of entries.
type ListQuery struct {
	Query    string
	Sort     string
	Page     int
	PageSize int
}

// Page is one page of a listing. Page is clamped to [1, PageCount].
type Page struct {
	Entries   []domain.Entry `json:"entries"`
	Total     int            `json:"total"`
	Page      int            `json:"page"`
	PageCount int            `json:"page_count"`
	PageSize  int            `json:"page_size"`
	Query     string         `json:"query,omitempty"`
	Sort      string         `json:"sort"`
}

// ListEntries returns a page of entries matching q in title or content,
// newest first by creation or update time.
func (s *Store) ListEntries(ctx context.Context, q ListQuery) (*Page, error) {
	query := strings.TrimSpace(q.Query)
	sortKey := SortCreated
	orderBy := "created_at DESC, id DESC"
	if q.Sort == SortUpdated {
		sortKey = SortUpdated
		orderBy = "updated_at DESC, id DESC"
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	where := ""
	var args []any
	if query != "" {
		where = ` WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'`
		pattern := "%" + escapeLike(query) + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}

	pageCount := (total + pageSize - 1) / pageSize
	if pageCount < 1 {
		pageCount = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries`+where+` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`,
		append(args, pageSize, (page-1)*pageSize)...,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	entries, err := s.collectEntries(ctx, rows)
	if err != nil {
		return nil, err
	}

	return &Page{
		Entries:   entries,
		Total:     total,
		Page:      page,
		PageCount: pageCount,
		PageSize:  pageSize,
		Query:     query,
		Sort:      sortKey,
	}, nil
}

// AllEntries returns every entry, oldest first.
func (s *Store) AllEntries(ctx context.Context) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all entries: %w", err)
	}
	return s.collectEntries(ctx, rows)
}

func (s *Store) collectEntries(ctx context.Context, rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	rows.Close()

	for i := range entries {
		if err := s.attachTags(ctx, &entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/enrich"
	"github.com/pbaille/notebook/internal/fetcher"
	"github.com/pbaille/notebook/internal/logging"
	"github.com/pbaille/notebook/internal/search"
	"github.com/pbaille/notebook/internal/store"
)

// Index is the search view kept in sync with the store.
type Index interface {
	EntryChanged(ctx context.Context, entry *domain.Entry) error
	EntryDeleted(ctx context.Context, id int64) error
	Search(query string, limit int) ([]search.Result, error)
	Rebuild(ctx context.Context, entries []domain.Entry) error
}

// FetchFunc retrieves a web page for URL ingestion.
type FetchFunc func(ctx context.Context, rawURL string) (*fetcher.Page, error)

// Notebook bundles the entry workflows shared by the CLI and the HTTP
// server: plain CRUD with index upkeep, URL ingestion and search. AI
// enrichment and review go through Enricher.
type Notebook struct {
	Store    *store.Store
	Enricher *enrich.Service
	Index    Index
	Fetch    FetchFunc
	Logger   *slog.Logger
}

// AddEntryRequest describes a new entry. When URL is set the page is
// fetched and fills in whichever of title and content are blank.
type AddEntryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// UpdateEntryRequest replaces the title and content of an entry.
type UpdateEntryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (n *Notebook) logger() *slog.Logger {
	return logging.NewComponentLogger(n.Logger, "notebook")
}

// AddEntry creates an entry, ingesting the URL if one is given.
func (n *Notebook) AddEntry(ctx context.Context, req AddEntryRequest) (*domain.Entry, error) {
	in := store.NewEntry{Title: req.Title, Content: req.Content, SourceType: domain.SourceNote}

	if rawURL := strings.TrimSpace(req.URL); rawURL != "" {
		fetch := n.Fetch
		if fetch == nil {
			fetch = fetcher.Fetch
		}
		page, err := fetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrIngest, rawURL, err)
		}
		if strings.TrimSpace(in.Title) == "" {
			in.Title = page.Title
		}
		if strings.TrimSpace(in.Content) == "" {
			in.Content = page.Text
		}
		in.SourceType = domain.SourceWeb
		in.SourceURL = page.URL
	}

	entry, err := n.Store.CreateEntry(ctx, in)
	if err != nil {
		return nil, err
	}
	n.logger().Info("entry created",
		slog.Int64(logging.FieldEntryID, entry.ID),
		slog.String("source_type", entry.SourceType),
	)
	n.changed(ctx, entry)
	return entry, nil
}

// GetEntry returns an entry or enrich.ErrNotFound.
func (n *Notebook) GetEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id %d", enrich.ErrInvalidID, id)
	}
	entry, err := n.Store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: entry %d", enrich.ErrNotFound, id)
	}
	return entry, nil
}

// UpdateEntry replaces title and content. Derived fields are left as they
// are; regenerate them with force.
func (n *Notebook) UpdateEntry(ctx context.Context, id int64, req UpdateEntryRequest) (*domain.Entry, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id %d", enrich.ErrInvalidID, id)
	}
	entry, err := n.Store.UpdateEntry(ctx, id, req.Title, req.Content)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: entry %d", enrich.ErrNotFound, id)
	}
	n.changed(ctx, entry)
	return entry, nil
}

// DeleteEntry removes an entry and its index document.
func (n *Notebook) DeleteEntry(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: id %d", enrich.ErrInvalidID, id)
	}
	deleted, err := n.Store.DeleteEntry(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: entry %d", enrich.ErrNotFound, id)
	}
	if n.Index != nil {
		if err := n.Index.EntryDeleted(ctx, id); err != nil {
			n.logger().Warn("unindex failed", slog.Int64(logging.FieldEntryID, id), logging.Error(err))
		}
	}
	return nil
}

var (
	// ErrIngest wraps failures to fetch a URL for a new entry.
	ErrIngest = errors.New("url ingestion failed")
	// ErrSearchUnavailable is returned by Search and Reindex without an index.
	ErrSearchUnavailable = errors.New("search index unavailable")
)

// Search runs a full-text query against the index.
func (n *Notebook) Search(query string, limit int) ([]search.Result, error) {
	if n.Index == nil {
		return nil, ErrSearchUnavailable
	}
	return n.Index.Search(query, limit)
}

// Reindex rebuilds the search index from the store and returns the number
// of entries indexed.
func (n *Notebook) Reindex(ctx context.Context) (int, error) {
	if n.Index == nil {
		return 0, ErrSearchUnavailable
	}
	entries, err := n.Store.AllEntries(ctx)
	if err != nil {
		return 0, err
	}
	if err := n.Index.Rebuild(ctx, entries); err != nil {
		return 0, err
	}
	n.logger().Info("search index rebuilt", slog.Int("entries", len(entries)))
	return len(entries), nil
}

func (n *Notebook) changed(ctx context.Context, entry *domain.Entry) {
	if n.Index == nil {
		return
	}
	if err := n.Index.EntryChanged(ctx, entry); err != nil {
		n.logger().Warn("index update failed", slog.Int64(logging.FieldEntryID, entry.ID), logging.Error(err))
	}
}

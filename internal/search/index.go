// Package search keeps a bleve full-text index of entries. The enrichment
// service reports every change to it, so search results always reflect the
// latest summary, tags and effective category.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	_ "github.com/blevesearch/bleve/v2/search/highlight/highlighter/ansi"

	"github.com/pbaille/notebook/internal/domain"
)

// DefaultLimit is the number of hits returned when no limit is given.
const DefaultLimit = 10

// Index wraps a Bleve search index
type Index struct {
	index bleve.Index
}

// IndexedEntry is the document stored for each entry.
type IndexedEntry struct {
	ID        string
	Title     string
	Content   string
	Summary   string
	Tags      []string
	Category  string
	SourceURL string
	UpdatedAt time.Time
}

// Result is one search hit.
type Result struct {
	ID        int64
	Title     string
	Category  string
	Score     float64
	Fragments map[string][]string
}

// openTimeout bounds the wait for another process holding the index.
const openTimeout = "2s"

// Open opens or creates a Bleve index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.OpenUsing(path, map[string]interface{}{"bolt_timeout": openTimeout})
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{index: idx}, nil
}

// OpenMemory creates an index that lives only in memory.
func OpenMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = "en"

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", storedOnly)
	docMapping.AddFieldMappingsAt("Title", titleField)
	docMapping.AddFieldMappingsAt("Content", textField)
	docMapping.AddFieldMappingsAt("Summary", textField)
	docMapping.AddFieldMappingsAt("Tags", keywordField)
	docMapping.AddFieldMappingsAt("Category", keywordField)
	docMapping.AddFieldMappingsAt("SourceURL", storedOnly)
	docMapping.AddFieldMappingsAt("UpdatedAt", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func toDocument(e *domain.Entry) *IndexedEntry {
	doc := &IndexedEntry{
		ID:        docID(e.ID),
		Title:     e.Title,
		Content:   e.Content,
		Tags:      e.TagNames(),
		Category:  e.EffectiveCategory(),
		SourceURL: e.SourceURL,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Summary != nil {
		doc.Summary = e.Summary.Text
	}
	return doc
}

// EntryChanged reindexes e.
func (i *Index) EntryChanged(_ context.Context, e *domain.Entry) error {
	if e == nil {
		return nil
	}
	if err := i.index.Index(docID(e.ID), toDocument(e)); err != nil {
		return fmt.Errorf("index entry %d: %w", e.ID, err)
	}
	return nil
}

// EntryDeleted removes an entry from the index.
func (i *Index) EntryDeleted(_ context.Context, id int64) error {
	if err := i.index.Delete(docID(id)); err != nil {
		return fmt.Errorf("unindex entry %d: %w", id, err)
	}
	return nil
}

// Search runs a query string query (quotes, +/-, field:value, fuzzy ~)
// and returns hits with highlighted fragments.
func (i *Index) Search(queryStr string, limit int) ([]Result, error) {
	queryStr = strings.TrimSpace(queryStr)
	if queryStr == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(queryStr), limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("ansi")
	req.Fields = []string{"ID", "Title", "Category"}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		r := Result{ID: id, Score: hit.Score, Fragments: hit.Fragments}
		if title, ok := hit.Fields["Title"].(string); ok {
			r.Title = title
		}
		if category, ok := hit.Fields["Category"].(string); ok {
			r.Category = category
		}
		results = append(results, r)
	}
	return results, nil
}

// Rebuild makes the index match entries exactly: every entry is indexed and
// documents for entries no longer present are removed.
func (i *Index) Rebuild(_ context.Context, entries []domain.Entry) error {
	keep := make(map[string]struct{}, len(entries))
	batch := i.index.NewBatch()
	for idx := range entries {
		doc := toDocument(&entries[idx])
		keep[doc.ID] = struct{}{}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}

	stale, err := i.staleIDs(keep)
	if err != nil {
		return err
	}
	for _, id := range stale {
		batch.Delete(id)
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (i *Index) staleIDs(keep map[string]struct{}) ([]string, error) {
	count, err := i.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var stale []string
	for _, hit := range res.Hits {
		if _, ok := keep[hit.ID]; !ok {
			stale = append(stale, hit.ID)
		}
	}
	return stale, nil
}

// Count returns the number of documents in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/notebook/internal/api"
	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/enrich"
	"github.com/pbaille/notebook/internal/fetcher"
	"github.com/pbaille/notebook/internal/llm"
	"github.com/pbaille/notebook/internal/metrics"
	"github.com/pbaille/notebook/internal/search"
	"github.com/pbaille/notebook/internal/store"
)

type scriptedGateway struct {
	replies map[llm.OutputMode]string
	err     error
	calls   int
}

func (g *scriptedGateway) Invoke(_ context.Context, messages []llm.Message, mode llm.OutputMode) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if mode == llm.JSON && strings.Contains(messages[len(messages)-1].Content, `"tags"`) {
		return `{"tags": ["Retirement", "roth ira", "retirement"]}`, nil
	}
	return g.replies[mode], nil
}

type fixture struct {
	handler http.Handler
	store   *store.Store
	gateway *scriptedGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "notebook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	gw := &scriptedGateway{replies: map[llm.OutputMode]string{
		llm.FreeText: "How Roth conversions work.",
		llm.JSON:     `{"category": "procedure", "confidence": 0.9, "rationale": "Steps."}`,
	}}
	rec := metrics.New()
	svc := enrich.New(st, gw, enrich.DefaultConfig("test-model"),
		enrich.WithInvalidator(idx), enrich.WithMetrics(rec))

	nb := &api.Notebook{
		Store:    st,
		Enricher: svc,
		Index:    idx,
		Fetch: func(_ context.Context, rawURL string) (*fetcher.Page, error) {
			if strings.Contains(rawURL, "broken") {
				return nil, errors.New("connection refused")
			}
			return &fetcher.Page{URL: rawURL, Title: "Fetched title", Text: "Fetched body about pensions."}, nil
		},
	}
	return &fixture{handler: api.New(nb, rec, "").Handler(), store: st, gateway: gw}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (f *fixture) create(t *testing.T, title, content string) domain.Entry {
	t.Helper()
	body, _ := json.Marshal(api.AddEntryRequest{Title: title, Content: content})
	rec := f.do(t, http.MethodPost, "/entries", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Entry](t, rec)
}

func TestEntryCRUD(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "Roth IRA", "conversion steps")
	assert.Equal(t, domain.SourceNote, e.SourceType)

	rec := f.do(t, http.MethodGet, "/entries/"+itoa(e.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Roth IRA", decode[domain.Entry](t, rec).Title)

	rec = f.do(t, http.MethodPut, "/entries/"+itoa(e.ID), `{"title":"Roth IRA 2026","content":"updated"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Roth IRA 2026", decode[domain.Entry](t, rec).Title)

	rec = f.do(t, http.MethodGet, "/entries?q=updated", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[store.Page](t, rec)
	assert.Equal(t, 1, page.Total)

	rec = f.do(t, http.MethodDelete, "/entries/"+itoa(e.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/entries/"+itoa(e.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/entries", `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/entries", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/entries/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/entries/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateFromURL(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/entries", `{"url":"https://example.com/pensions"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decode[domain.Entry](t, rec)
	assert.Equal(t, "Fetched title", e.Title)
	assert.Equal(t, "Fetched body about pensions.", e.Content)
	assert.Equal(t, domain.SourceWeb, e.SourceType)
	assert.Equal(t, "https://example.com/pensions", e.SourceURL)

	rec = f.do(t, http.MethodPost, "/entries", `{"url":"https://broken.example"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestEnrichmentEndpoints(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "Roth conversions", "Steps to convert.")
	base := "/entries/" + itoa(e.ID)

	rec := f.do(t, http.MethodPost, base+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[api.GenerateResponse](t, rec)
	assert.True(t, res.Generated)
	assert.Equal(t, "How Roth conversions work.", res.Entry.Summary.Text)

	rec = f.do(t, http.MethodPost, base+"/summary", "")
	res = decode[api.GenerateResponse](t, rec)
	assert.False(t, res.Generated)

	rec = f.do(t, http.MethodPost, base+"/tags", "")
	res = decode[api.GenerateResponse](t, rec)
	assert.Equal(t, []string{"retirement", "roth ira"}, res.Entry.Tags.Tags)

	rec = f.do(t, http.MethodPost, base+"/category", "")
	res = decode[api.GenerateResponse](t, rec)
	assert.Equal(t, "procedure", string(res.Entry.Category.Category))

	rec = f.do(t, http.MethodPost, base+"/category?force=true", "")
	res = decode[api.GenerateResponse](t, rec)
	assert.True(t, res.Generated)
	assert.Equal(t, 4, f.gateway.calls)

	rec = f.do(t, http.MethodGet, "/search?q=convert", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ID":`+itoa(e.ID))

	rec = f.do(t, http.MethodGet, "/tags", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"roth ira"`)

	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `notebook_generations_total{field="summary",outcome="skipped"} 1`)
}

func TestModelFailureIsBadGateway(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "Foo", "bar")
	f.gateway.err = errors.New("overloaded")

	rec := f.do(t, http.MethodPost, "/entries/"+itoa(e.ID)+"/category", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.do(t, http.MethodPost, "/entries/999/summary", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewEndpoints(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "Foo", "bar")
	base := "/entries/" + itoa(e.ID) + "/category"

	rec := f.do(t, http.MethodPut, base+"/override", `{"override":"not a label"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPut, base+"/override", `{"override":"Tax Rules","reason":"AI wrong"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.Entry](t, rec)
	assert.Equal(t, domain.ReviewOverridden, got.Review.Status)

	rec = f.do(t, http.MethodPost, base+"/review", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, base+"/override", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ReviewAuto, decode[domain.Entry](t, rec).Review.Status)

	rec = f.do(t, http.MethodPost, base+"/review", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ReviewReviewed, decode[domain.Entry](t, rec).Review.Status)
}

func TestTaxonomyAndHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/taxonomy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string][]string](t, rec)
	assert.Len(t, body["categories"], 7)
	assert.Len(t, body["overrides"], 12)

	rec = f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodOptions, "/entries", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/enrich"
	"github.com/pbaille/notebook/internal/logging"
	"github.com/pbaille/notebook/internal/metrics"
	"github.com/pbaille/notebook/internal/store"
	"github.com/pbaille/notebook/internal/taxonomy"
)

// Server handles HTTP requests for the notebook API
type Server struct {
	nb      *Notebook
	metrics *metrics.Recorder
	logger  *slog.Logger
	addr    string
}

// New creates a new API server
func New(nb *Notebook, rec *metrics.Recorder, addr string) *Server {
	return &Server{
		nb:      nb,
		metrics: rec,
		logger:  logging.NewComponentLogger(nb.Logger, "api"),
		addr:    addr,
	}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.addEntry)
	mux.HandleFunc("GET /entries/{id}", s.getEntry)
	mux.HandleFunc("PUT /entries/{id}", s.updateEntry)
	mux.HandleFunc("DELETE /entries/{id}", s.deleteEntry)

	// Enrichment
	mux.HandleFunc("POST /entries/{id}/summary", s.generateSummary)
	mux.HandleFunc("POST /entries/{id}/tags", s.generateTags)
	mux.HandleFunc("POST /entries/{id}/category", s.generateCategory)

	// Category review
	mux.HandleFunc("PUT /entries/{id}/category/override", s.setOverride)
	mux.HandleFunc("DELETE /entries/{id}/category/override", s.clearOverride)
	mux.HandleFunc("POST /entries/{id}/category/review", s.markReviewed)
	mux.HandleFunc("GET /taxonomy", s.taxonomy)

	mux.HandleFunc("GET /tags", s.listTags)
	mux.HandleFunc("GET /search", s.searchEntries)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", slog.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if p := q.Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			page = n
		}
	}

	result, err := s.nb.Store.ListEntries(r.Context(), store.ListQuery{
		Query: q.Get("q"),
		Sort:  q.Get("sort"),
		Page:  page,
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.nb.AddEntry(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entry, err := s.nb.GetEntry(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, err := s.nb.UpdateEntry(r.Context(), id, req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.nb.DeleteEntry(r.Context(), id); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateResponse is returned by the enrichment endpoints.
type GenerateResponse struct {
	Entry     *domain.Entry `json:"entry"`
	Generated bool          `json:"generated"`
}

func (s *Server) generateSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.nb.Enricher.GenerateSummary(r.Context(), id)
	s.writeResult(w, res, err)
}

func (s *Server) generateTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.nb.Enricher.GenerateTags(r.Context(), id, forceParam(r))
	s.writeResult(w, res, err)
}

func (s *Server) generateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.nb.Enricher.GenerateCategory(r.Context(), id, forceParam(r))
	s.writeResult(w, res, err)
}

func (s *Server) writeResult(w http.ResponseWriter, res enrich.Result, err error) {
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Entry: res.Entry, Generated: res.Generated})
}

// OverrideRequest is the body of PUT /entries/{id}/category/override.
type OverrideRequest struct {
	Override string `json:"override"`
	Reason   string `json:"reason"`
}

func (s *Server) setOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, err := s.nb.Enricher.SetCategoryOverride(r.Context(), id, req.Override, req.Reason)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) clearOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entry, err := s.nb.Enricher.ClearCategoryOverride(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) markReviewed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entry, err := s.nb.Enricher.MarkCategoryReviewed(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) taxonomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": taxonomy.Categories(),
		"overrides":  taxonomy.OverrideOptions(),
	})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.nb.Store.ListTags(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) searchEntries(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := s.nb.Search(query, limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"query":   query,
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func forceParam(r *http.Request) bool {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	return force
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, enrich.ErrInvalidID), errors.Is(err, store.ErrTitleRequired):
		return http.StatusBadRequest
	case errors.Is(err, enrich.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, enrich.ErrOverrideActive):
		return http.StatusConflict
	case errors.Is(err, enrich.ErrInvalidOverride):
		return http.StatusUnprocessableEntity
	case errors.Is(err, enrich.ErrModelCall), errors.Is(err, enrich.ErrModelOutputInvalid):
		return http.StatusBadGateway
	case errors.Is(err, ErrIngest):
		return http.StatusBadGateway
	case errors.Is(err, ErrSearchUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err), slog.Int("status", status))
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

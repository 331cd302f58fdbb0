package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/headline-goat/sigtable/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	TablesCount   int    `json:"tables_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tables, err := s.store.ListPublished(ctx)
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Database size; zero when the pragma is unavailable
	var dbSize int64
	row := s.store.DB().QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err := row.Scan(&dbSize); err != nil {
		s.logger.Debug("failed to read database size", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		TablesCount:   len(tables),
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

type tableSummary struct {
	Title       string `json:"title"`
	Reference   string `json:"reference"`
	Rows        int    `json:"rows"`
	RunID       string `json:"run_id"`
	PublishedAt string `json:"published_at"`
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.store.ListPublished(r.Context())
	if err != nil {
		s.logger.Error("failed to list tables", zap.Error(err))
		http.Error(w, "Failed to load tables", http.StatusInternalServerError)
		return
	}

	// Return empty array instead of null
	out := make([]tableSummary, 0, len(tables))
	for _, t := range tables {
		out = append(out, tableSummary{
			Title:       t.Title,
			Reference:   t.Reference,
			Rows:        t.RowCount,
			RunID:       t.RunID,
			PublishedAt: t.PublishedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"tables": out})
}

// handleGetTable serves the published payload unchanged.
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTable(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(t.Payload)
}

type historyEntry struct {
	RunID         string `json:"run_id"`
	Outcome       string `json:"outcome"`
	CandidateRows int    `json:"candidate_rows"`
	IncumbentRows int    `json:"incumbent_rows"`
	Reference     string `json:"reference,omitempty"`
	Message       string `json:"message,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (s *Server) handleTableHistory(w http.ResponseWriter, r *http.Request) {
	title := titleParam(r)

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.ListOutcomes(r.Context(), title, limit)
	if err != nil {
		s.logger.Error("failed to list history", zap.String("title", title), zap.Error(err))
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	out := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, historyEntry{
			RunID:         rec.RunID,
			Outcome:       rec.Outcome,
			CandidateRows: rec.CandidateRows,
			IncumbentRows: rec.IncumbentRows,
			Reference:     rec.Reference,
			Message:       rec.Message,
			CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"title": title, "history": out})
}

func (s *Server) lookupTable(w http.ResponseWriter, r *http.Request) (*store.PublishedTable, bool) {
	title := titleParam(r)
	if title == "" {
		http.NotFound(w, r)
		return nil, false
	}

	t, err := s.store.GetPublished(r.Context(), title)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to load table", zap.String("title", title), zap.Error(err))
		http.Error(w, "Failed to load table", http.StatusInternalServerError)
		return nil, false
	}
	return t, true
}

func titleParam(r *http.Request) string {
	raw := chi.URLParam(r, "title")
	if title, err := url.PathUnescape(raw); err == nil {
		return title
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/headline-goat/sigtable/internal/dashboard"
	"github.com/headline-goat/sigtable/internal/stats"
	"github.com/headline-goat/sigtable/internal/ttable"
)

// Dashboard template data structures
type layoutData struct {
	Title   string
	CSS     template.CSS
	Content template.HTML
}

type listData struct {
	Tables []tableListItem
}

type tableListItem struct {
	Title       string
	Path        string
	Rows        int
	Positive    int
	Negative    int
	RunID       string
	PublishedAt string
}

type detailData struct {
	Title       string
	Reference   string
	PublishedAt string
	Columns     []ttable.Column
	Rows        []detailRow
	History     []historyEntry
}

type detailRow struct {
	Cells []string
	Class string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// Handle logout
	if r.URL.Query().Get("logout") == "1" {
		http.SetCookie(w, &http.Cookie{
			Name:   tokenCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	ctx := r.Context()

	tables, err := s.store.ListPublished(ctx)
	if err != nil {
		s.logger.Error("failed to list tables", zap.Error(err))
		http.Error(w, "Failed to load tables", http.StatusInternalServerError)
		return
	}

	items := make([]tableListItem, len(tables))
	for i, t := range tables {
		item := tableListItem{
			Title:       t.Title,
			Path:        "/dashboard/tables/" + url.PathEscape(t.Title),
			Rows:        t.RowCount,
			RunID:       t.RunID,
			PublishedAt: t.PublishedAt.Format("Jan 2, 2006 15:04"),
		}
		if p, err := ttable.DecodePayload(t.Payload); err == nil {
			for _, row := range p.Rows {
				switch row.Significance {
				case stats.Positive:
					item.Positive++
				case stats.Negative:
					item.Negative++
				}
			}
		}
		items[i] = item
	}

	s.renderDashboard(w, "Dashboard", "list.html", listData{Tables: items})
}

func (s *Server) handleDashboardTable(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTable(w, r)
	if !ok {
		return
	}

	payload, err := ttable.DecodePayload(t.Payload)
	if err != nil {
		s.logger.Error("stored payload is unreadable", zap.String("title", t.Title), zap.Error(err))
		http.Error(w, "Failed to decode table", http.StatusInternalServerError)
		return
	}

	rows := make([]detailRow, len(payload.Rows))
	for i, row := range payload.Rows {
		rows[i] = detailRow{
			Cells: row.Strings(),
			Class: significanceClass(row.Significance),
		}
	}

	records, err := s.store.ListOutcomes(r.Context(), t.Title, 10)
	if err != nil {
		s.logger.Warn("failed to load history", zap.String("title", t.Title), zap.Error(err))
	}
	history := make([]historyEntry, len(records))
	for i, rec := range records {
		history[i] = historyEntry{
			RunID:         rec.RunID,
			Outcome:       rec.Outcome,
			CandidateRows: rec.CandidateRows,
			IncumbentRows: rec.IncumbentRows,
			Message:       rec.Message,
			CreatedAt:     rec.CreatedAt.Format("Jan 2, 2006 15:04"),
		}
	}

	s.renderDashboard(w, t.Title, "detail.html", detailData{
		Title:       t.Title,
		Reference:   t.Reference,
		PublishedAt: t.PublishedAt.Format("Jan 2, 2006 15:04"),
		Columns:     payload.Columns,
		Rows:        rows,
		History:     history,
	})
}

func significanceClass(sig stats.Significance) string {
	switch sig {
	case stats.Positive:
		return "positive"
	case stats.Negative:
		return "negative"
	case stats.Undefined:
		return "undefined"
	default:
		return ""
	}
}

func (s *Server) renderDashboard(w http.ResponseWriter, title, contentTemplate string, data any) {
	cssBytes, err := dashboard.Assets.ReadFile("assets/style.css")
	if err != nil {
		http.Error(w, "Failed to load styles", http.StatusInternalServerError)
		return
	}

	contentTmpl, err := template.ParseFS(dashboard.Templates, "templates/"+contentTemplate)
	if err != nil {
		s.logger.Error("failed to parse template", zap.String("template", contentTemplate), zap.Error(err))
		http.Error(w, "Failed to parse template", http.StatusInternalServerError)
		return
	}

	var contentBuf bytes.Buffer
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render template: %v", err), http.StatusInternalServerError)
		return
	}

	layoutTmpl, err := template.ParseFS(dashboard.Templates, "templates/layout.html")
	if err != nil {
		http.Error(w, "Failed to parse layout", http.StatusInternalServerError)
		return
	}

	// Render into a buffer so a failure can still produce a clean 500
	var page bytes.Buffer
	if err := layoutTmpl.Execute(&page, layoutData{
		Title:   title,
		CSS:     template.CSS(cssBytes),
		Content: template.HTML(contentBuf.String()),
	}); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page.Bytes())
}

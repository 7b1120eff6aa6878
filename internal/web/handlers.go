package web

import (
	"database/sql"
	"html/template"
	"net/http"
	"strconv"

	"github.com/hpungsan/hira/internal/db"
	"github.com/hpungsan/hira/internal/drill"
	"github.com/hpungsan/hira/internal/errors"
	"github.com/hpungsan/hira/internal/ops"
	"github.com/hpungsan/hira/internal/report"
)

// Handlers contains HTTP route handlers for the dashboard.
type Handlers struct {
	session  *drill.Session
	db       *sql.DB
	renderer *Renderer
}

// ProgressPageData is the template data for the progress page.
type ProgressPageData struct {
	PageData
	Summary  report.Summary
	Table    template.HTML
	Strategy string
}

// SessionsPageData is the template data for the journal session list.
type SessionsPageData struct {
	PageData
	Items      []db.Session
	Pagination ops.Pagination
}

// StatsPageData is the template data for per-card journal statistics.
type StatsPageData struct {
	PageData
	Stats *ops.StatsOutput
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// HandleProgress handles GET /progress: the live session report.
func (h *Handlers) HandleProgress(w http.ResponseWriter, r *http.Request) {
	summary := h.session.Progress()

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, summary)
		return
	}

	table, err := report.HTML(summary)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	h.renderer.renderPage(w, "progress", ProgressPageData{
		PageData: h.renderer.page("Progress", "progress"),
		Summary:  summary,
		// goldmark drops raw HTML from cell text, so the fragment is safe to embed
		Table:    template.HTML(table),
		Strategy: string(h.session.Strategy()),
	})
}

// HandleProgressJSON handles GET /progress.json.
func (h *Handlers) HandleProgressJSON(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, h.session.Progress())
}

// HandleSessions handles GET /sessions: journal sessions, newest first.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.db, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "sessions", SessionsPageData{
		PageData:   h.renderer.page("Sessions", "sessions"),
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleStats handles GET /stats and GET /sessions/{id}: per-card journal
// statistics across all sessions or for one.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := ops.Stats(r.Context(), h.db, ops.StatsInput{SessionID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	title := "All sessions"
	nav := "stats"
	if id != "" {
		title = "Session " + id
		nav = "sessions"
	}

	h.renderer.renderPage(w, "stats", StatsPageData{
		PageData: h.renderer.page(title, nav),
		Stats:    result,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

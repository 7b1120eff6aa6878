package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hpungsan/hira/internal/corpus"
	"github.com/hpungsan/hira/internal/db"
	"github.com/hpungsan/hira/internal/drill"
	"github.com/hpungsan/hira/internal/metrics"
)

type fixture struct {
	handler   http.Handler
	session   *drill.Session
	db        *sql.DB
	sessionID string
}

func setupTest(t *testing.T, journal bool) *fixture {
	t.Helper()

	items, err := corpus.Parse(strings.NewReader("あ -- a\nい -- i\n<b> -- bold|pipe\n"), "test")
	if err != nil {
		t.Fatalf("corpus.Parse: %v", err)
	}

	f := &fixture{}
	opts := drill.Options{Seed: 9}

	m := metrics.New()
	opts.Recorder = m

	if journal {
		database, err := db.Init(t.TempDir())
		if err != nil {
			t.Fatalf("db.Init: %v", err)
		}
		t.Cleanup(func() { database.Close() })

		s := &db.Session{CorpusPath: "test", ItemCount: len(items), Strategy: "front-biased", Seed: 9}
		if err := db.StartSession(context.Background(), database, s); err != nil {
			t.Fatalf("db.StartSession: %v", err)
		}
		opts.Journal = db.NewJournal(database, s.ID)
		f.db = database
		f.sessionID = s.ID
	}

	f.session, err = drill.NewSession(items, opts)
	if err != nil {
		t.Fatalf("drill.NewSession: %v", err)
	}
	f.handler = newHandler(f.session, f.db, m.Handler(), "test")
	return f
}

func (f *fixture) play(t *testing.T, rounds int) {
	t.Helper()
	for i := 0; i < rounds; i++ {
		f.session.Next()
		if _, err := f.session.Answer(context.Background(), "a"); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}
}

func (f *fixture) get(path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

// --- routing ---

func TestRootRedirectsToProgress(t *testing.T) {
	f := setupTest(t, false)

	w := f.get("/")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/progress" {
		t.Errorf("Location = %q, want /progress", loc)
	}
}

func TestSecurityHeaders(t *testing.T) {
	f := setupTest(t, false)

	w := f.get("/progress")
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if !strings.Contains(w.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Errorf("Content-Security-Policy = %q", w.Header().Get("Content-Security-Policy"))
	}
}

func TestStaticFiles(t *testing.T) {
	f := setupTest(t, false)

	w := f.get("/static/style.css")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

// --- progress ---

func TestHandleProgress(t *testing.T) {
	f := setupTest(t, false)
	f.play(t, 4)

	w := f.get("/progress")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}

	body := w.Body.String()
	for _, want := range []string{"<table>", "Total mastery", "cards seen", "front-biased"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "<b>") {
		t.Error("card text was rendered as raw HTML")
	}
	if strings.Contains(body, `href="/sessions"`) {
		t.Error("sessions link shown without a journal")
	}
}

func TestHandleProgress_JSON(t *testing.T) {
	f := setupTest(t, false)
	f.play(t, 2)

	for _, w := range []*httptest.ResponseRecorder{
		f.get("/progress.json"),
		f.get("/progress", "Accept", "application/json"),
	} {
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var got struct {
			Cards  int `json:"cards"`
			Rounds int `json:"rounds"`
			Rows   []struct {
				Position int `json:"position"`
			} `json:"rows"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Cards != 3 || got.Rounds != 2 || len(got.Rows) != 3 {
			t.Errorf("progress = %+v, want 3 cards, 2 rounds, 3 rows", got)
		}
	}
}

// --- metrics ---

func TestMetricsEndpoint(t *testing.T) {
	f := setupTest(t, false)
	f.play(t, 3)

	w := f.get("/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hira_rounds_total") {
		t.Error("metrics output missing hira_rounds_total")
	}
}

// --- journal ---

func TestJournalRoutes_DisabledWithoutDB(t *testing.T) {
	f := setupTest(t, false)

	for _, path := range []string{"/sessions", "/stats", "/sessions/abc"} {
		if w := f.get(path); w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
	}
}

func TestHandleSessions(t *testing.T) {
	f := setupTest(t, true)
	f.play(t, 5)

	w := f.get("/sessions")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, f.sessionID) {
		t.Error("session list missing the session id")
	}
	if !strings.Contains(body, "running") {
		t.Error("open session should show as running")
	}

	w = f.get("/sessions", "Accept", "application/json")
	var got struct {
		Items []struct {
			ID     string `json:"id"`
			Rounds int    `json:"rounds"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Rounds != 5 {
		t.Errorf("sessions = %+v, want one session with 5 rounds", got.Items)
	}
}

func TestHandleSessions_Empty(t *testing.T) {
	f := setupTest(t, true)
	if _, err := f.db.Exec(`DELETE FROM sessions`); err != nil {
		t.Fatalf("delete sessions: %v", err)
	}

	w := f.get("/sessions")
	if !strings.Contains(w.Body.String(), "No sessions recorded yet.") {
		t.Error("expected empty-state message")
	}
}

func TestHandleStats(t *testing.T) {
	f := setupTest(t, true)
	f.play(t, 6)

	for _, path := range []string{"/stats", "/sessions/" + f.sessionID} {
		w := f.get(path, "Accept", "application/json")
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, w.Code)
		}
		var got struct {
			Attempts int `json:"attempts"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Attempts != 6 {
			t.Errorf("GET %s attempts = %d, want 6", path, got.Attempts)
		}
	}

	w := f.get("/sessions/" + f.sessionID)
	if !strings.Contains(w.Body.String(), "Session "+f.sessionID) {
		t.Error("stats page missing session title")
	}
}

func TestHandleStats_NotFound(t *testing.T) {
	f := setupTest(t, true)

	w := f.get("/sessions/missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "session not found") {
		t.Error("error page missing message")
	}

	w = f.get("/sessions/missing", "Accept", "application/json")
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", payload.Error.Code)
	}
}

// --- helpers ---

func TestFormatTime(t *testing.T) {
	if got := formatTime(0); got != "1970-01-01 00:00" {
		t.Errorf("formatTime(0) = %q", got)
	}
	end := int64(86400)
	if got := endedAt(&end); got != "1970-01-02 00:00" {
		t.Errorf("endedAt = %q", got)
	}
	if got := endedAt(nil); got != "running" {
		t.Errorf("endedAt(nil) = %q, want running", got)
	}
}

func TestParseIntParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/sessions?limit=7&offset=x", nil)
	if got := parseIntParam(req, "limit", 20); got != 7 {
		t.Errorf("limit = %d, want 7", got)
	}
	if got := parseIntParam(req, "offset", 0); got != 0 {
		t.Errorf("offset = %d, want default 0", got)
	}
}

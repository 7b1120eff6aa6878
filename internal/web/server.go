package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/hira/internal/drill"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates the HTTP server for the progress dashboard.
// Journal pages are only routed when db is non-nil, and /metrics only when
// metrics is non-nil.
func NewServer(session *drill.Session, db *sql.DB, metrics http.Handler, version, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           newHandler(session, db, metrics, version),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newHandler(session *drill.Session, db *sql.DB, metrics http.Handler, version string) http.Handler {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("template sub-FS: %v", err))
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	h := &Handlers{
		session:  session,
		db:       db,
		renderer: NewRenderer(templateSub, version, db != nil),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/progress", http.StatusFound)
	})
	mux.HandleFunc("GET /progress", h.HandleProgress)
	mux.HandleFunc("GET /progress.json", h.HandleProgressJSON)
	if db != nil {
		mux.HandleFunc("GET /sessions", h.HandleSessions)
		mux.HandleFunc("GET /sessions/{id}", h.HandleStats)
		mux.HandleFunc("GET /stats", h.HandleStats)
	}
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return securityHeaders(mux)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves srv until ctx is done or SIGINT/SIGTERM arrives, then shuts down
// gracefully.
func Run(ctx context.Context, srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("dashboard running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		slog.Warn("dashboard is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	case <-ctx.Done():
	}

	slog.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

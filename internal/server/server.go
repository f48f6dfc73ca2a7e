// Package server exposes the poster service over HTTP: request
// submission, job polling and streaming, artifact download, theme
// listing, location search, and job history.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/posterforge/posterforge/pkg/geocode"
	"github.com/posterforge/posterforge/pkg/job"
	"github.com/posterforge/posterforge/pkg/poster"
	"github.com/posterforge/posterforge/pkg/storage"
	"github.com/posterforge/posterforge/pkg/theme"
)

// Searcher provides free-text location search for the API.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]geocode.Location, error)
}

// History serves terminal jobs that have aged out of the live store.
// *job.Archive implements it.
type History interface {
	Get(ctx context.Context, id string) (*job.Job, error)
	Recent(ctx context.Context, limit int64) ([]*job.Job, error)
}

// Config wires the server's collaborators.
type Config struct {
	Generator *poster.Generator
	Jobs      job.Store
	Watcher   *job.Watcher
	Themes    *theme.Store
	Artifacts *storage.ArtifactStore

	// Searcher backs /api/locations/search; nil disables the endpoint.
	Searcher Searcher

	// History backs /api/history; nil disables the endpoints.
	History History

	Logger *log.Logger
}

// Server is the HTTP front of the poster service.
type Server struct {
	cfg    Config
	router chi.Router
}

// New builds the router.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(10 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/posters", s.handleCreatePoster)
		r.Get("/posters/{id}", s.handleGetJob)
		r.Get("/posters/{id}/download", s.handleDownload)
		r.Get("/posters/{id}/preview", s.handlePreview)
		r.Get("/jobs/{id}/stream", s.handleStream)
		r.Get("/jobs/{id}/ws", s.handleWebSocket)
		r.Get("/themes", s.handleListThemes)
		r.Get("/themes/{id}", s.handleGetTheme)
		r.Get("/locations/search", s.handleSearchLocations)
		r.Get("/history", s.handleListHistory)
		r.Get("/history/{id}", s.handleGetHistory)
	})

	s.router = r
	return s
}

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler { return s.router }

// logRequests logs one line per request with status and latency.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.cfg.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

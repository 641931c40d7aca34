// Package server exposes comparisons over HTTP for the presentation layer.
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coolbeans/redline/pkg/export"
	"github.com/coolbeans/redline/pkg/normalize"
	"github.com/coolbeans/redline/pkg/redline"
	"github.com/coolbeans/redline/pkg/watch"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes = 10 << 20

// Options configures a Server.
type Options struct {
	// MaxBodyBytes caps POST bodies. Zero means 10 MiB.
	MaxBodyBytes int64

	// Export is applied to HTML and Markdown renderings.
	Export export.Options
}

// Server is the HTTP API for redline.
type Server struct {
	router     chi.Router
	builder    *redline.Builder
	normalizer *normalize.Normalizer
	logger     *zap.Logger
	options    Options

	mu       sync.RWMutex
	snapshot *watch.Snapshot
}

// New creates and configures the HTTP server. Nil collaborators fall back to
// defaults.
func New(builder *redline.Builder, normalizer *normalize.Normalizer, logger *zap.Logger, options Options) *Server {
	if normalizer == nil {
		normalizer = normalize.Default()
	}
	if builder == nil {
		builder = redline.NewBuilder(redline.WithNormalizer(normalizer), redline.WithLogger(logger))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.MaxBodyBytes <= 0 {
		options.MaxBodyBytes = defaultMaxBodyBytes
	}

	s := &Server{
		builder:    builder,
		normalizer: normalizer,
		logger:     logger,
		options:    options,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetSnapshot publishes a new dataset snapshot. In-flight requests keep the
// snapshot they started with.
func (s *Server) SetSnapshot(snapshot *watch.Snapshot) {
	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()
}

// Snapshot returns the current dataset snapshot, or nil if none is loaded.
func (s *Server) Snapshot() *watch.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.logger))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/groups", s.handleListGroups)
		r.Get("/comparison", s.handleGroupComparison)
		r.Post("/comparison", s.handleBuildComparison)
		r.Post("/compare", s.handleCompareTwo)
		r.Post("/normalize", s.handleNormalize)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{"status": "ok"}
	if snapshot := s.Snapshot(); snapshot != nil {
		response["dataset"] = snapshot.Path
		response["records"] = len(snapshot.Records)
		response["groups"] = len(snapshot.Groups)
		response["loadedAt"] = snapshot.LoadedAt
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/store"
)

// Server is the recall HTTP API server. It fronts one memory engine;
// the providers fill in embeddings and concepts before any engine call,
// so requests may omit them.
type Server struct {
	db        *store.DB
	engine    *engine.Engine
	embedder  engine.Embedder
	extractor engine.ConceptExtractor
	router    chi.Router
	version   string
	started   time.Time
}

// New creates a new Server. embedder and extractor may be nil; requests
// must then carry explicit embeddings and concepts.
func New(db *store.DB, eng *engine.Engine, embedder engine.Embedder, extractor engine.ConceptExtractor, version string) *Server {
	s := &Server{
		db:        db,
		engine:    eng,
		embedder:  embedder,
		extractor: extractor,
		version:   version,
		started:   time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/interactions", s.handleAddInteraction)
		r.Get("/interactions/{id}", s.handleGetInteraction)
		r.Post("/retrieve", s.handleRetrieve)
		r.Post("/retention", s.handleRetention)
		r.Post("/snapshot", s.handleSnapshot)
		r.Get("/stats", s.handleStats)
		r.Get("/concepts", s.handleConcepts)
		r.Get("/context", s.handleGetContext)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	stats := s.engine.Stats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"version":    s.version,
		"uptime":     time.Since(s.started).Seconds(),
		"db":         dbOK,
		"db_path":    s.db.Path,
		"short_term": stats.ShortTerm,
		"long_term":  stats.LongTerm,
	})
}

// writeEngineError maps the engine's error types onto HTTP statuses:
// rejected input is the caller's fault, provider failures are upstream,
// anything else is ours.
func writeEngineError(w http.ResponseWriter, err error) {
	var invalid *engine.InvalidInputError
	var provider *engine.ProviderError
	switch {
	case errors.As(err, &invalid):
		http.Error(w, fmt.Sprintf(`{"error":%q}`, invalid.Error()), http.StatusBadRequest)
	case errors.As(err, &provider):
		http.Error(w, fmt.Sprintf(`{"error":%q}`, provider.Error()), http.StatusBadGateway)
	default:
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusInternalServerError)
	}
}

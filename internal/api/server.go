package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/orgtree/internal/config"
	"github.com/dgallion1/orgtree/internal/headline"
	"github.com/dgallion1/orgtree/internal/importer"
	"github.com/dgallion1/orgtree/internal/pipeline"
	"github.com/dgallion1/orgtree/internal/session"
	"github.com/dgallion1/orgtree/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for orgtree.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	sessions     *session.Manager
	stats        *stats.MutationStats
	log          *slog.Logger
	cfg          config.Config
	keywords     headline.Context
	importOpts   importer.Options
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, sessions *session.Manager, mstats *stats.MutationStats, log *slog.Logger, cfg config.Config) *Server {
	if mstats == nil {
		mstats = stats.NewMutationStats(time.Hour)
	}
	s := &Server{
		orchestrator: orch,
		sessions:     sessions,
		stats:        mstats,
		log:          log,
		cfg:          cfg,
		keywords:     headline.ParseKeywords(cfg.TodoKeywords),
		importOpts:   importer.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/documents", s.handleCreateDocument)
		r.Route("/api/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Post("/compact", s.handleCompact)
			r.Get("/chunks", s.handleChunks)
			r.Get("/at", s.handleAt)

			r.Get("/sections", s.handleSectionTree)
			r.Route("/sections/{sectionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSection)
				r.Delete("/", s.handleRemoveSection)
				r.Put("/raw", s.handleSetRaw)
				r.Put("/level", s.handleSetLevel)
				r.Patch("/headline", s.handlePatchHeadline)
				r.Post("/id", s.handleGenerateID)
				r.Post("/children", s.handleAddChild)
				r.Post("/move", s.handleMove)
				r.Post("/unwrap", s.handleUnwrap)
			})
		})

		r.Post("/api/verify", s.handleVerify)
		r.Post("/api/verify/batch", s.handleBatchVerify)
		r.Get("/api/verify/{jobID}/status", s.handleVerifyStatus)

		r.Get("/api/stats/mutations", s.handleMutationStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"sessions":    s.sessions.Len(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

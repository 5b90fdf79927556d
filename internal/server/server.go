// Package server provides the HTTP API for kotae: document upload, repository
// ingestion and retrieval-augmented generation.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

// Ingester is the write path used by the handlers.
type Ingester interface {
	Ingest(ctx context.Context, doc *models.Document) (*models.IngestResult, error)
	IngestRepository(ctx context.Context, url, branch string) (*models.RepositoryResult, error)
}

// Answerer is the read path used by the handlers.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
	Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error)
}

// IndexInfo reports the vector index for the status endpoint.
type IndexInfo interface {
	Size() int
	Type() string
}

// Deps are the components the server adapts to HTTP.
type Deps struct {
	Ingester Ingester
	Answerer Answerer
	Index    IndexInfo
	// Ledger is optional; without it the ingestions endpoint returns 501.
	Ledger        storage.Ledger
	EmbedderName  string
	GeneratorName string
}

// Server is the HTTP server for the kotae API.
type Server struct {
	deps   Deps
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, config: cfg, logger: logger}
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if d := s.config.Server.RequestTimeout; d > 0 {
		r.Use(middleware.Timeout(d))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleIndexPage)
	r.Get("/health", s.handleHealth)
	r.Post("/upload", s.handleUpload)
	r.Post("/add_repo", s.handleAddRepository)
	r.Post("/generate", s.handleGenerate)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Post("/repositories", s.handleAddRepository)
		r.Post("/generate", s.handleGenerate)
		r.Post("/retrieve", s.handleRetrieve)
		r.Get("/status", s.handleStatus)
		r.Get("/ingestions", s.handleIngestions)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

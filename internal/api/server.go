// Package api provides the normal-mode HTTP server for Memora content.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/memoraapp/memora/internal/docindex"
	"github.com/memoraapp/memora/internal/logger"
	"github.com/memoraapp/memora/internal/store"
)

// Config holds server options.
type Config struct {
	Title       string
	Version     string
	CORSOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  store.ContentStore
	index  *docindex.Index
	router *chi.Mux
	api    huma.API
	logger *slog.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(cfg Config, content store.ContentStore, index *docindex.Index, log *slog.Logger) *Server {
	if cfg.Title == "" {
		cfg.Title = "Memora API"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}

	s := &Server{
		store:  content,
		index:  index,
		router: chi.NewRouter(),
		logger: logger.OrDiscard(log),
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig(cfg.Title, cfg.Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerUserRoutes()
	s.registerCategoryRoutes()
	s.registerCollectionRoutes()
	s.registerPostRoutes()
	s.registerLikeRoutes()
	s.registerAttachmentRoutes()
	s.registerKnowledgeRoutes()
	s.registerExportRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(cfg Config) {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", userHeader},
		MaxAge:         300,
	}))
	s.router.Use(identityMiddleware)
}

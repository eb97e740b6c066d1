// Package server provides the HTTP API for Paperbase.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paperbase/paperbase/internal/config"
	"github.com/paperbase/paperbase/internal/generate"
	"github.com/paperbase/paperbase/internal/manifest"
	"github.com/paperbase/paperbase/internal/retrieval"
	"github.com/paperbase/paperbase/internal/store"
)

// Server is the HTTP server for the Paperbase API.
type Server struct {
	retriever *retrieval.Service
	generator generate.Generator
	store     store.VectorStore
	manifest  *manifest.Manifest
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. manifest may be
// nil; status then reports only the store count.
func NewServer(
	retriever *retrieval.Service,
	generator generate.Generator,
	vs store.VectorStore,
	m *manifest.Manifest,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		retriever: retriever,
		generator: generator,
		store:     vs,
		manifest:  m,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/query", s.handleQuery)
	r.Get("/api/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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

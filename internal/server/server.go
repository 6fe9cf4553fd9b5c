// Package server exposes the ingestion, pipeline trigger, and cluster read
// endpoints consumed by the reader UI and the feed ingestor.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"manthan/internal/config"
	"manthan/internal/core"
	"manthan/internal/logger"
	"manthan/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// ClusterReader is the store surface the read endpoints and ingestion use.
type ClusterReader interface {
	UpsertArticles(articles []core.Article) error
	LoadRecentClusters(maxAge time.Duration, limit int) ([]core.Cluster, error)
	LoadClusterArticles(clusterID string) ([]core.Article, error)
}

// PipelineRunner triggers one analysis cycle.
type PipelineRunner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Server represents the HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      ClusterReader
	runner     PipelineRunner
	log        *slog.Logger
	proxy      *http.Client
}

// New creates a new HTTP server instance.
func New(store ClusterReader, runner PipelineRunner, cfg config.Server) *Server {
	s := &Server{
		router: chi.NewRouter(),
		store:  store,
		runner: runner,
		log:    logger.Get(),
		proxy: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(120 * time.Second))

	// The reader UI is a static page served elsewhere.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/articles", s.handleIngestArticles)
		r.Post("/pipeline/process", s.handleProcessPipeline)
		r.Get("/clusters", s.handleGetClusters)
		r.Get("/clusters/{clusterID}/articles", s.handleGetClusterArticles)
		r.Get("/proxy", s.handleProxyFetch)
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Start begins listening for requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("server: listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server: shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the chi mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Package server provides the HTTP API for furrow.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/furrow/internal/config"
	"github.com/hyperjump/furrow/internal/indexer"
	"github.com/hyperjump/furrow/internal/metrics"
	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
	"github.com/hyperjump/furrow/internal/storage"
	"github.com/hyperjump/furrow/pkg/utils"
)

// Searcher answers search requests.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	Analyze(query string) *ranking.ParsedQuery
}

// EntryIndexer writes entries to the content source and the search index.
type EntryIndexer interface {
	IndexEntry(ctx context.Context, e *models.Entry) error
	RemoveEntry(ctx context.Context, id string) error
	Sync(ctx context.Context, clearFirst bool) (*indexer.SyncStats, error)
}

// WatchService manages the watched import directories.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, importExisting bool) error
	RemoveDirectory(path string) error
}

// DocCounter reports the number of documents in a search index.
type DocCounter interface {
	DocCount(ctx context.Context, name string) (uint64, error)
}

// Server is the HTTP server for the furrow API.
type Server struct {
	search  Searcher
	indexer EntryIndexer
	content storage.ContentSource
	config  *config.Config
	logger  *zap.Logger

	watch      WatchService
	configPath string
	configMu   sync.Mutex
	docs       DocCounter

	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = utils.OrNop(l) }
}

// WithWatch enables the watch directory endpoints. When configPath is set, directory
// changes are persisted to it.
func WithWatch(w WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// WithDocCounter adds the search index document count to the status endpoint.
func WithDocCounter(d DocCounter) Option {
	return func(s *Server) { s.docs = d }
}

// NewServer creates a server with the given dependencies.
func NewServer(svc Searcher, idx EntryIndexer, content storage.ContentSource, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		search:  svc,
		indexer: idx,
		content: content,
		config:  cfg,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Post("/search", s.handleSearch)
		r.Get("/analyze", s.handleAnalyze)

		for _, contentType := range models.ContentTypes {
			r.Get("/"+contentType+"s", s.handleList(contentType))
			r.Get("/"+contentType+"s/{slug}", s.handleGetEntry(contentType))
		}

		r.Post("/entries", s.handleIndexEntry)
		r.Delete("/entries/{id}", s.handleDeleteEntry)
		r.Post("/sync", s.handleSync)
		r.Get("/status", s.handleStatus)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Package httpserver exposes the acquisition pipeline as an HTTP tool
// service: keyword search, relevance screening, and ingestion into a
// knowledge store.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-ingest-service/internal/domain"
	"github.com/helixir/paper-ingest-service/internal/knowledgestore"
	"github.com/helixir/paper-ingest-service/internal/pipeline"
	"github.com/helixir/paper-ingest-service/internal/sourceindex"
)

// ToolService is the pipeline surface the HTTP layer exposes.
type ToolService interface {
	Search(ctx context.Context, params sourceindex.SearchParams) (*pipeline.SearchReport, error)
	Screen(ctx context.Context, params pipeline.ScreenParams) (*pipeline.ScreenReport, error)
	Ingest(ctx context.Context, store pipeline.KnowledgeStore, params pipeline.IngestParams) (*domain.IngestReport, error)
}

// StoreFactory builds a knowledge-store client from a config. Requests may
// override the store address and credentials; the factory turns those
// overrides into a usable client.
type StoreFactory func(cfg knowledgestore.Config) (pipeline.KnowledgeStore, error)

// IngestDefaults are the server-side defaults applied to ingest requests
// that omit the corresponding fields.
type IngestDefaults struct {
	KnowledgeBaseName        string
	KnowledgeBaseDescription string
	MaxPapers                int
	FileProcessTimeout       time.Duration
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MetricsPath mounts the prometheus handler when MetricsHandler is
	// set. Defaults to /metrics.
	MetricsPath string
}

// Server is the HTTP tool-service server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	service        ToolService
	defaultStore   pipeline.KnowledgeStore
	storeConfig    knowledgestore.Config
	newStore       StoreFactory
	defaults       IngestDefaults
	metricsHandler http.Handler
	validate       *validator.Validate
	logger         zerolog.Logger
}

// NewServer creates a new HTTP server. defaultStore is used for ingest
// requests that do not override the knowledge-store address; storeConfig is
// the base config such overrides are derived from. metricsHandler may be
// nil to disable the metrics endpoint.
func NewServer(
	cfg Config,
	service ToolService,
	defaultStore pipeline.KnowledgeStore,
	storeConfig knowledgestore.Config,
	defaults IngestDefaults,
	metricsHandler http.Handler,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		service:        service,
		defaultStore:   defaultStore,
		storeConfig:    storeConfig,
		defaults:       defaults,
		metricsHandler: metricsHandler,
		validate:       newValidator(),
		logger:         logger.With().Str("component", "http-server").Logger(),
	}

	s.newStore = func(c knowledgestore.Config) (pipeline.KnowledgeStore, error) {
		return knowledgestore.New(c)
	}

	s.router = s.buildRouter(cfg)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	r.Get("/healthz", s.healthHandler)

	if s.metricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, s.metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)
		r.Post("/search", s.handleSearch)
		r.Post("/screen", s.handleScreen)
		r.Post("/ingest", s.handleIngest)
	})

	return r
}

// ServeHTTP makes the server usable as an http.Handler in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// newValidator builds the request validator, reporting violations under
// the field's JSON name rather than the Go struct field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

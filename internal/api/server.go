// Package api provides the HTTP API server and handlers for the osusume service.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/osusumeapp/osusume-server/internal/http/response"
	"github.com/osusumeapp/osusume-server/internal/metrics"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string
	// RateLimit is the per-IP budget per minute on recommendation routes. Zero disables it.
	RateLimit int
	// RequestTimeout bounds every request's context.
	RequestTimeout time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	router   chi.Router
	api      huma.API
	metrics  *metrics.Metrics
	opts     Options
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router := chi.NewRouter()
	s := &Server{
		services: services,
		router:   router,
		metrics:  m,
		opts:     opts,
		logger:   logger,
	}
	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("osusume API", Version)
	humaConfig.Info.Description = "Anime recommendations from free text, explicit filters and example titles."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if s.opts.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.opts.RequestTimeout))
	}
	if s.opts.RateLimit > 0 {
		s.router.Use(limitPaths(rateLimit(s.opts.RateLimit, s.logger), recommendationPaths...))
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerRecommendationRoutes()
	s.registerVocabularyRoutes()

	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
}

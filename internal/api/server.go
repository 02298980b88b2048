// Package api provides the read-only HTTP server for the tools index.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/projectenv/tools-index/internal/api/common"
	"github.com/projectenv/tools-index/internal/api/index"
	"github.com/projectenv/tools-index/internal/versions"
)

// ServerOption configures the index API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	status         index.StatusProvider
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithStatusProvider exposes the background generation status on /v2/status
func WithStatusProvider(p index.StatusProvider) ServerOption {
	return func(cfg *serverConfig) {
		cfg.status = p
	}
}

// WithMetricsHandler serves h on /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// NewServer creates and configures the HTTP router serving the index read through reader
func NewServer(reader index.IndexReader, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(reader))
	r.Get("/version", versionHandler)
	if cfg.metricsHandler != nil {
		r.Handle("/metrics", cfg.metricsHandler)
	}

	routes := index.NewRoutes(reader, cfg.status)
	r.Mount("/v2", routes.Router())
	r.Mount("/v1", routes.LegacyRouter())

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler reports ready once a non-empty index can be loaded
func readinessHandler(reader index.IndexReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := reader.Load(r.Context())
		if err != nil {
			common.WriteErrorResponse(w, "Index not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if c.Len() == 0 {
			common.WriteErrorResponse(w, "Index not ready: index is empty", http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, ReadinessResponse{Status: "ready", URLCount: c.Len()}, http.StatusOK)
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetBuildInfo(), http.StatusOK)
}

// Package api serves ephemeris, element-set and pass-prediction queries over
// HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/skyglass/internal/auth"
	"github.com/star/skyglass/internal/config"
	"github.com/star/skyglass/internal/health"
	"github.com/star/skyglass/internal/httputil"
	"github.com/star/skyglass/internal/metrics"
	"github.com/star/skyglass/internal/propagation"
	"github.com/star/skyglass/internal/stream"
	"github.com/star/skyglass/internal/tle"
)

// Deps are the long-lived components the handlers share. Fetcher and Cache
// may be nil; Pool is built from the config when nil.
type Deps struct {
	Store   *tle.Store
	Fetcher *tle.Fetcher
	Cache   *tle.Cache
	Pool    *propagation.WorkerPool
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        config.Config
	deps       Deps
}

// NewServer creates a configured HTTP server.
func NewServer(cfg config.Config, logger *slog.Logger, deps Deps) *Server {
	if deps.Store == nil {
		deps.Store = tle.NewStore()
	}
	if deps.Pool == nil {
		deps.Pool = propagation.NewWorkerPool(cfg.PropConfig(), logger)
	}
	s := &Server{logger: logger, cfg: cfg, deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(s.ready))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/sun", s.handleSun)
	mux.HandleFunc("GET /api/v1/moon", s.handleMoon)
	mux.HandleFunc("GET /api/v1/moon/phase", s.handlePhase)
	mux.HandleFunc("GET /api/v1/tle/metadata", s.handleTLEMetadata)
	mux.HandleFunc("GET /api/v1/tle/select", s.handleTLESelect)
	mux.HandleFunc("POST /api/v1/tle/fetch", s.handleTLEFetch)
	mux.HandleFunc("GET /api/v1/passes", s.handlePasses)
	mux.HandleFunc("GET /api/v1/satellites/positions", s.handlePositions)
	mux.HandleFunc("GET /api/v1/satellites/{norad_id}/track", s.handleTrack)

	sky := stream.NewHandler(deps.Store, deps.Pool, cfg.StreamHandlerConfig(), logger)
	mux.HandleFunc("GET /api/v1/stream/sky", sky.HandleSky)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.AuthMiddlewareConfig())(handler)
	handler = loggingMiddleware(logger, cfg.HTTP.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// Long prediction windows over many objects can take a while.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// ready reports whether element-set queries can be answered. A server with
// no element-set source configured only serves ephemeris and is always ready.
func (s *Server) ready() bool {
	if s.deps.Store.Get() != nil {
		return true
	}
	return len(s.cfg.TLE.Files) == 0 && s.deps.Fetcher == nil
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the wrapper.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/couchcryptid/climate-dashboard/internal/dashboard"
	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/couchcryptid/climate-dashboard/internal/observability"
	"github.com/couchcryptid/climate-dashboard/internal/settings"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Dashboard is the state the server renders and mutates.
// It is implemented by *dashboard.Controller.
type Dashboard interface {
	ReadinessChecker
	Snapshot() dashboard.Snapshot
	Subscribe() (<-chan dashboard.Snapshot, func())
	UpdateFilter(field domain.Field, value string) (dashboard.Snapshot, error)
	ApplyFilters(values map[domain.Field]string) (dashboard.Snapshot, error)
	Fetch(ctx context.Context) (dashboard.Snapshot, error)
	ToggleTheme(ctx context.Context) dashboard.Snapshot
	SetTheme(ctx context.Context, theme settings.Theme) (dashboard.Snapshot, error)
}

// Server serves the dashboard page, its JSON API, the snapshot stream, and
// the health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	metrics    *observability.Metrics
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates an HTTP server with every dashboard route registered.
func NewServer(addr string, dash Dashboard, metrics *observability.Metrics, logger *slog.Logger) *Server {
	r := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dash:    dash,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		closing: make(chan struct{}),
	}

	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleReady(dash)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/filters", s.handleFilterForm).Methods(http.MethodPost)
	r.HandleFunc("/fetch", s.handleFetchForm).Methods(http.MethodPost)
	r.HandleFunc("/theme/toggle", s.handleThemeForm).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleStream).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/options", s.handleOptions).Methods(http.MethodGet)
	api.HandleFunc("/filters", s.handlePatchFilter).Methods(http.MethodPatch)
	api.HandleFunc("/fetch", s.handleFetch).Methods(http.MethodPost)
	api.HandleFunc("/theme", s.handleGetTheme).Methods(http.MethodGet)
	api.HandleFunc("/theme", s.handlePutTheme).Methods(http.MethodPut)
	api.HandleFunc("/export.csv", s.handleExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/export.xlsx", s.handleExportXLSX).Methods(http.MethodGet)
	api.HandleFunc("/chart.{format:png|svg}", s.handleChart).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown closes open snapshot streams and gracefully drains connections
// within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// logRequests records method, path, status, and latency of every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/chart"
	"github.com/couchcryptid/covid-severity-etl/internal/dashboard"
	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// requestTimeout bounds a request that has to build the day's snapshot.
const requestTimeout = 2 * time.Minute

// SnapshotService produces the dashboard data.
type SnapshotService interface {
	sharedobs.ReadinessChecker
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	Refresh(ctx context.Context) (domain.Snapshot, error)
}

// Server exposes the dashboard, its chart images, a JSON API, and the
// health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        SnapshotService
	charts     chart.GroupedBarRenderer
	infoURL    string
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every dashboard route registered.
func NewServer(addr string, svc SnapshotService, charts chart.GroupedBarRenderer, infoURL string, logger *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: requestTimeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:     svc,
		charts:  charts,
		infoURL: infoURL,
		logger:  logger,
	}

	router.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	router.HandleFunc("/charts/{metric:[A-Za-z0-9_]+}.png", s.handleChart).Methods(http.MethodGet)
	router.HandleFunc("/api/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost)
	router.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	router.HandleFunc("/readyz", sharedobs.ReadinessHandler(svc)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// snapshot builds or returns today's snapshot. The build is shared by every
// concurrent viewer, so it is detached from the caller's cancellation.
func (s *Server) snapshot(r *http.Request) (domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), requestTimeout)
	defer cancel()
	return s.svc.Snapshot(ctx)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		s.renderError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := dashboard.Render(&buf, dashboard.NewPage(snap, s.infoURL)); err != nil {
		s.logger.Error("render dashboard failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, cause error) {
	s.logger.Warn("dashboard unavailable", "error", cause)

	var buf bytes.Buffer
	page := dashboard.ErrorPage{
		Sidebar: dashboard.Sidebar{InfoURL: s.infoURL},
		Message: cause.Error(),
	}
	if err := dashboard.RenderError(&buf, page); err != nil {
		s.logger.Error("render error page failed", "error", err)
		http.Error(w, cause.Error(), statusFor(cause))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusFor(cause))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	metric := mux.Vars(r)["metric"]

	snap, err := s.snapshot(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	panel, ok := dashboard.FindPanel(snap.Earliest(), snap.Latest(), metric)
	if !ok {
		http.NotFound(w, r)
		return
	}

	png, err := dashboard.RenderPanel(s.charts, snap, panel)
	if err != nil {
		s.logger.Error("chart render failed", "metric", metric, "error", err)
		http.Error(w, "chart render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		sharedobs.WriteJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), requestTimeout)
	defer cancel()

	snap, err := s.svc.Refresh(ctx)
	if err != nil {
		sharedobs.WriteJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "refreshed",
		"day":          snap.Day,
		"from":         snap.Earliest(),
		"to":           snap.Latest(),
		"generated_at": snap.GeneratedAt,
	})
}

// statusFor maps pipeline failures to a response status. Upstream and data
// problems are 503 so that monitors see the dashboard as unavailable.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrFetch),
		errors.Is(err, domain.ErrEmptyDataset),
		errors.Is(err, domain.ErrUnknownAgeBracket),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/irve-station-etl/internal/adapter/regions"
	"github.com/couchcryptid/irve-station-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DashboardService answers the API queries.
type DashboardService interface {
	sharedobs.ReadinessChecker
	Dashboard(ctx context.Context) (domain.Dashboard, error)
	FindStations(ctx context.Context, place string) (domain.PlaceMatch, error)
	Regions() []domain.Region
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        DashboardService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, svc DashboardService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// The first API request may wait on a full feed download.
			WriteTimeout: 3 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/v1/growth", s.handleGrowth)
	mux.HandleFunc("GET /api/v1/regions", s.handleRegions)
	mux.HandleFunc("GET /api/v1/regions.geojson", s.handleChoropleth)
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/stations", s.handleStations)

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

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, d)
}

func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, growthResponse{
		SnapshotKey: d.SnapshotKey,
		Series:      d.Growth,
	})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, regionsResponse{
		SnapshotKey:  d.SnapshotKey,
		RegionReport: d.Regions,
		JoinMismatch: d.JoinMismatch,
		Warnings:     d.Warnings,
	})
}

func (s *Server) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := writeBody(w, regions.Choropleth(s.svc.Regions(), d.Regions)); err != nil {
		s.logger.Error("encode choropleth", "error", err)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, summaryResponse{
		SnapshotKey:  d.SnapshotKey,
		FleetSummary: d.Summary,
	})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	place := r.URL.Query().Get("place")
	match, err := s.svc.FindStations(r.Context(), place)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, match)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) (domain.Dashboard, bool) {
	d, err := s.svc.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, err)
		return domain.Dashboard{}, false
	}
	return d, true
}

// writeError maps the error taxonomy to a status code and a JSON body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	} else {
		s.logger.Info("request rejected", "status", status, "error", err)
	}
	sharedobs.WriteJSON(w, status, errorResponse{Error: message})
}

func classify(err error) (int, string) {
	var (
		netErr   *domain.NetworkError
		decErr   *domain.DecodeError
		parseErr *domain.ParseError
		geoErr   *domain.GeocodeServiceError
	)
	switch {
	case errors.Is(err, domain.ErrEmptyPlaceName):
		return http.StatusBadRequest, "query parameter place is required"
	case errors.Is(err, domain.ErrPlaceNotFound):
		return http.StatusNotFound, "no location found for this place name"
	case errors.Is(err, domain.ErrGeocoderDisabled):
		return http.StatusServiceUnavailable, "place search is not configured"
	case errors.As(err, &geoErr):
		return http.StatusBadGateway, "geocoding service unavailable"
	case errors.As(err, &netErr), errors.As(err, &decErr):
		return http.StatusBadGateway, err.Error()
	case errors.As(err, &parseErr):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled before the dataset was ready"
	default:
		return http.StatusInternalServerError, fmt.Sprintf("internal error: %v", err)
	}
}

// Package admin serves the agent's health, status and metrics endpoints.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"typescope/internal/metrics"
	"typescope/internal/server"
)

// StatusSource reports the streaming server's state
type StatusSource interface {
	Status() server.Status
}

// Server is the admin HTTP listener
type Server struct {
	http   *http.Server
	source StatusSource
	logger zerolog.Logger
	ln     net.Listener
}

// New creates an admin server bound to address once Start is called
func New(address string, source StatusSource, logger zerolog.Logger) *Server {
	s := &Server{
		source: source,
		logger: logger.With().Str("component", "admin").Logger(),
	}
	s.http = &http.Server{
		Addr:              address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the admin routes
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.HTTPMetricsMiddleware)

	// Add health check endpoint
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// Add status endpoint
	r.HandleFunc("/status", s.handleStatus).Methods("GET")

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.source.Status()
	code := http.StatusOK
	health := "healthy"
	if !st.Running {
		code = http.StatusServiceUnavailable
		health = "stopped"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  health,
		"service": "typescope-agent",
		"state":   st.State,
	}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode health response")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(s.source.Status()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode status response")
	}
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	s.logger.Info().Str("address", ln.Addr().String()).Msg("Admin server listening")
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Admin server failed")
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown gracefully stops the admin server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

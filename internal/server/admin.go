package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	sse "github.com/r3labs/sse/v2"
	"github.com/wheelibin/hughbridge/internal/metrics"
	"github.com/wheelibin/hughbridge/internal/models"
)

// LightsStream is the SSE stream state changes are published on.
const LightsStream = "lights"

const shutdownTimeout = 5 * time.Second

// AdminServer is the bridge's own http surface: metrics, a live feed of light
// changes and a health check. It listens separately from the emulated api.
type AdminServer struct {
	logger   *log.Logger
	registry *prometheus.Registry
	events   *sse.Server
	server   *http.Server
	listener net.Listener
}

func NewAdminServer(logger *log.Logger, registry *prometheus.Registry) *AdminServer {
	events := sse.New()
	events.AutoReplay = false
	events.CreateStream(LightsStream)

	return &AdminServer{
		logger:   logger,
		registry: registry,
		events:   events,
	}
}

func (s *AdminServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler(s.registry))
	r.Get("/events", s.events.ServeHTTP)
	r.Get("/healthz", handleHealth)
	return r
}

func (s *AdminServer) Name() string { return "sse" }

// Apply publishes change to everyone subscribed to the lights stream.
func (s *AdminServer) Apply(change models.StateChange) error {
	data, err := json.Marshal(change.Event())
	if err != nil {
		return fmt.Errorf("Error encoding event for light (%d): %w", change.LightNumber(), err)
	}

	s.events.Publish(LightsStream, &sse.Event{Data: data})
	return nil
}

// Start listens on address and serves in the background.
func (s *AdminServer) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("Error starting admin server on %s: %w", address, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Admin server stopped", "err", err)
		}
	}()

	s.logger.Info("Admin server listening", "address", listener.Addr().String())
	return nil
}

// Addr is the address actually listened on, nil before Start.
func (s *AdminServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *AdminServer) Close() error {
	// ends the open event streams so Shutdown is not left waiting on them
	s.events.Close()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("Error shutting down admin server: %w", err)
	}
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

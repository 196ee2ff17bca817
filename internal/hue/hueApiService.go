package hue

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/wheelibin/hughbridge/internal/constants"
	"github.com/wheelibin/hughbridge/internal/metrics"
	"github.com/wheelibin/hughbridge/internal/models"
	"github.com/wheelibin/hughbridge/internal/network"
)

type deviceRegistry interface {
	Len() int
	Describe(index int) (models.Descriptor, bool)
	DescribeAll() []models.Descriptor
	SetState(index int, state models.LightState)
}

type Options struct {
	// port reported in description.xml
	Port int
	// username handed out to pairing clients
	Username string
}

// HueAPIService serves the subset of the Hue v1 api that voice assistants use.
// It keeps no state between requests other than the registry.
type HueAPIService struct {
	logger   *log.Logger
	registry deviceRegistry
	identity network.Source
	metrics  *metrics.Collectors
	opts     Options
}

func NewHueAPIService(logger *log.Logger, registry deviceRegistry, identity network.Source, collectors *metrics.Collectors, opts Options) *HueAPIService {
	if opts.Port == 0 {
		opts.Port = constants.DefaultHTTPPort
	}
	if opts.Username == "" {
		opts.Username = constants.DefaultUsername
	}
	return &HueAPIService{
		logger:   logger,
		registry: registry,
		identity: identity,
		metrics:  collectors,
		opts:     opts,
	}
}

func (h *HueAPIService) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(h.instrument)
	r.Use(corsMiddleware)

	r.Get("/description.xml", h.handleGetDescription)
	r.Post("/api", h.handlePostDeviceType)
	r.Get("/api/{user}/lights", h.handleGetState)
	r.Get("/api/{user}/lights/{id}", h.handleGetState)
	r.Put("/api/{user}/lights/{id}/state", h.handlePutState)

	r.NotFound(h.handleNotFound)
	r.MethodNotAllowed(h.handleNotFound)

	return r
}

// instrument logs and counts every request once routing has finished.
func (h *HueAPIService) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if r.Method == http.MethodOptions {
			route = "preflight"
		} else if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
		if h.metrics != nil {
			h.metrics.ObserveRequest(route, wrapped.status)
		}
	})
}

// corsMiddleware answers every preflight with 204, whatever the path.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "PUT, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

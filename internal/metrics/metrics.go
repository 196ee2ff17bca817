package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DiscoveryReplied = "replied"
	DiscoveryIgnored = "ignored"
)

// Collectors groups the bridge metrics. Each instance owns its collectors so
// several bridges (or tests) can register them side by side.
type Collectors struct {
	HTTPRequests       *prometheus.CounterVec
	StateChanges       prometheus.Counter
	DiscoveryDatagrams *prometheus.CounterVec
	Devices            prometheus.Gauge
}

func NewCollectors() *Collectors {
	return &Collectors{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hughbridge_http_requests_total",
				Help: "Hue api requests handled, by route pattern and status code",
			},
			[]string{"route", "code"},
		),
		StateChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hughbridge_state_changes_total",
				Help: "Light state mutations delivered to the state manager",
			},
		),
		DiscoveryDatagrams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hughbridge_discovery_datagrams_total",
				Help: "SSDP datagrams received, by outcome",
			},
			[]string{"result"},
		),
		Devices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hughbridge_devices",
				Help: "Number of emulated lights",
			},
		),
	}
}

func (c *Collectors) All() []prometheus.Collector {
	return []prometheus.Collector{c.HTTPRequests, c.StateChanges, c.DiscoveryDatagrams, c.Devices}
}

// Registry builds a private registry holding these collectors.
func (c *Collectors) Registry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	for _, collector := range c.All() {
		registry.MustRegister(collector)
	}
	return registry
}

func (c *Collectors) ObserveRequest(route string, code int) {
	c.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler exposes the registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

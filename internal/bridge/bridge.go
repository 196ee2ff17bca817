package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/hughbridge/internal/constants"
	"github.com/wheelibin/hughbridge/internal/discovery"
	"github.com/wheelibin/hughbridge/internal/hue"
	"github.com/wheelibin/hughbridge/internal/metrics"
	"github.com/wheelibin/hughbridge/internal/network"
	"github.com/wheelibin/hughbridge/internal/registry"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	Host     string
	Port     int
	Username string

	// SSDP responder on the discovery group
	Discovery      bool
	DiscoveryGroup string
	Interface      string

	// _hue._tcp advertisement
	MDNS bool
}

type Deps struct {
	Logger   *log.Logger
	Identity network.Source
	Metrics  *metrics.Collectors

	// Listener and DiscoveryConn replace the sockets Start would open.
	Listener      net.Listener
	DiscoveryConn net.PacketConn
	// MDNSFactory replaces zeroconf.
	MDNSFactory discovery.MDNSServerFactory

	Options Options
}

type job struct {
	w    http.ResponseWriter
	r    *http.Request
	done chan struct{}
}

// Bridge owns the registry and the transports in front of it. All registry
// access happens in Handle, so Handle must only ever be called from one
// goroutine at a time (Run does this).
type Bridge struct {
	logger   *log.Logger
	identity network.Source
	metrics  *metrics.Collectors
	opts     Options

	registry   *registry.Registry
	api        http.Handler
	jobs       chan *job
	closing    chan struct{}
	conn       net.PacketConn
	responder  *discovery.Responder
	advertiser *discovery.Advertiser
	server     *http.Server
	listener   net.Listener
}

func New(deps Deps) *Bridge {
	opts := deps.Options
	if opts.Port == 0 {
		opts.Port = constants.DefaultHTTPPort
	}
	if opts.DiscoveryGroup == "" {
		opts.DiscoveryGroup = constants.DiscoveryGroup
	}
	collectors := deps.Metrics
	if collectors == nil {
		collectors = metrics.NewCollectors()
	}

	reg := registry.NewRegistry(deps.Logger, deps.Identity)
	api := hue.NewHueAPIService(deps.Logger, reg, deps.Identity, collectors, hue.Options{
		Port:     opts.Port,
		Username: opts.Username,
	})

	b := &Bridge{
		logger:     deps.Logger,
		identity:   deps.Identity,
		metrics:    collectors,
		opts:       opts,
		registry:   reg,
		api:        api.Routes(),
		jobs:       make(chan *job),
		closing:    make(chan struct{}),
		conn:       deps.DiscoveryConn,
		listener:   deps.Listener,
		advertiser: discovery.NewAdvertiser(deps.Logger, deps.MDNSFactory),
	}
	if b.conn != nil {
		b.responder = discovery.NewResponder(b.logger, b.conn, b.identity, opts.Port, collectors)
	}
	return b
}

// AddDevice registers a light and returns its zero based index. Call it before
// Run.
func (b *Bridge) AddDevice(name string) int {
	index := b.registry.Register(name)
	b.metrics.Devices.Set(float64(b.registry.Len()))
	return index
}

// OnSetState sets the single subscriber told about every accepted state change.
func (b *Bridge) OnSetState(s registry.Subscriber) {
	b.registry.Subscribe(s)
}

// Registry is for wiring only; it must not be touched while Run is going.
func (b *Bridge) Registry() *registry.Registry {
	return b.registry
}

// Handle does one cooperative step: at most one waiting http request and at
// most one discovery datagram. It never waits for a request to arrive.
func (b *Bridge) Handle() {
	select {
	case j := <-b.jobs:
		b.api.ServeHTTP(j.w, j.r)
		close(j.done)
	default:
	}

	if b.responder != nil {
		b.responder.HandlePending()
	}
}

// Run calls Handle on a short ticker until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	b.logger.Debug("Bridge.Run")

	ticker := time.NewTicker(constants.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bridge.Run: stop signal received")
			return
		case <-ticker.C:
			b.Handle()
		}
	}
}

// ServeHTTP queues the request for Handle and waits for it to be answered.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	j := &job{w: w, r: r, done: make(chan struct{})}

	select {
	case b.jobs <- j:
	case <-r.Context().Done():
		return
	case <-b.closing:
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	// once taken, Handle always finishes the job
	<-j.done
}

// Start opens the transports: the http listener, the multicast socket and, if
// enabled, the mDNS advertisement. mDNS failing is logged, not returned.
func (b *Bridge) Start() error {
	if b.listener == nil {
		address := net.JoinHostPort(b.opts.Host, strconv.Itoa(b.opts.Port))
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return fmt.Errorf("Error listening on %s: %w", address, err)
		}
		b.listener = listener
	}
	listener := b.listener
	b.server = &http.Server{
		Handler:           b,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := b.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("Hue api server stopped", "err", err)
		}
	}()
	b.logger.Info("Hue api listening", "address", listener.Addr().String())

	if b.opts.Discovery && b.responder == nil {
		conn, err := discovery.Listen(b.opts.Interface, b.opts.DiscoveryGroup)
		if err != nil {
			_ = b.Close()
			return err
		}
		b.conn = conn
		b.responder = discovery.NewResponder(b.logger, conn, b.identity, b.opts.Port, b.metrics)
		b.logger.Info("Discovery responder listening", "group", b.opts.DiscoveryGroup)
	}

	if b.opts.MDNS {
		var ifaces []net.Interface
		if b.opts.Interface != "" {
			if iface, err := net.InterfaceByName(b.opts.Interface); err == nil {
				ifaces = []net.Interface{*iface}
			}
		}
		if err := b.advertiser.Start(b.identity.Current(), b.opts.Port, ifaces); err != nil {
			b.logger.Warn("mDNS advertisement unavailable", "err", err)
		}
	}

	return nil
}

// Addr is the address the api listens on, nil before Start.
func (b *Bridge) Addr() net.Addr {
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// Close stops the transports. Requests still queued are answered with 503.
func (b *Bridge) Close() error {
	select {
	case <-b.closing:
		return nil
	default:
		close(b.closing)
	}

	b.advertiser.Shutdown()

	var errs []error
	if b.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := b.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("Error shutting down hue api: %w", err))
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("Error closing discovery socket: %w", err))
		}
	}
	return errors.Join(errs...)
}

package discovery

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/grandcat/zeroconf"
	"github.com/wheelibin/hughbridge/internal/constants"
	"github.com/wheelibin/hughbridge/internal/network"
)

var ErrAlreadyStarted = errors.New("mDNS advertiser already started")

// MDNSServer is a running mDNS registration.
type MDNSServer interface {
	Shutdown()
}

// MDNSServerFactory registers services, swapped out in tests.
type MDNSServerFactory interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

type zeroconfServerFactory struct{}

func (z *zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	server, err := zeroconf.Register(instance, service, domain, port, txt, ifaces)
	if err != nil {
		return nil, err
	}
	return server, nil
}

// Advertiser publishes the bridge as _hue._tcp, which newer Hue apps browse for
// instead of SSDP.
type Advertiser struct {
	logger  *log.Logger
	factory MDNSServerFactory
	server  MDNSServer
}

func NewAdvertiser(logger *log.Logger, factory MDNSServerFactory) *Advertiser {
	if factory == nil {
		factory = &zeroconfServerFactory{}
	}
	return &Advertiser{logger: logger, factory: factory}
}

func (a *Advertiser) Start(facts network.Facts, port int, ifaces []net.Interface) error {
	if a.server != nil {
		return ErrAlreadyStarted
	}

	id := facts.BridgeID()
	instance := InstanceName(id)
	txt := []string{
		"bridgeid=" + id,
		"modelid=" + constants.BridgeModelID,
	}

	server, err := a.factory.Register(instance, constants.MDNSService, constants.MDNSDomain, port, txt, ifaces)
	if err != nil {
		return fmt.Errorf("Error registering mDNS service: %w", err)
	}
	a.server = server

	a.logger.Info("mDNS service registered", "instance", instance, "port", port)
	return nil
}

func (a *Advertiser) Shutdown() {
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}

// InstanceName is "Philips Hue - " followed by the last six characters of the
// bridge id in upper case.
func InstanceName(bridgeID string) string {
	suffix := bridgeID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "Philips Hue - " + strings.ToUpper(suffix)
}

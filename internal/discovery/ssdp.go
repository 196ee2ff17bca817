package discovery

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/hughbridge/internal/constants"
	"github.com/wheelibin/hughbridge/internal/metrics"
	"github.com/wheelibin/hughbridge/internal/network"
)

const searchMarker = "M-SEARCH"

// any one of these in an M-SEARCH gets a reply
var searchTargets = []string{
	"ssdp:discover",
	"upnp:rootdevice",
	"device:basic:1",
}

const replyTemplate = "HTTP/1.1 200 OK\r\n" +
	"EXT:\r\n" +
	"CACHE-CONTROL: max-age=100\r\n" +
	"LOCATION: http://%s:%d/description.xml\r\n" +
	"SERVER: FreeRTOS/6.0.5, UPnP/1.0, IpBridge/1.17.0\r\n" +
	"hue-bridgeid: %s\r\n" +
	"ST: urn:schemas-upnp-org:device:basic:1\r\n" +
	"USN: uuid:%s%s::upnp:rootdevice\r\n" +
	"\r\n"

// Responder answers SSDP searches so clients can find the description url.
type Responder struct {
	logger   *log.Logger
	conn     net.PacketConn
	identity network.Source
	port     int
	metrics  *metrics.Collectors
	buf      []byte
}

func NewResponder(logger *log.Logger, conn net.PacketConn, identity network.Source, port int, collectors *metrics.Collectors) *Responder {
	return &Responder{
		logger:   logger,
		conn:     conn,
		identity: identity,
		port:     port,
		metrics:  collectors,
		buf:      make([]byte, constants.DiscoveryBufferSize),
	}
}

// Listen joins the discovery multicast group. An empty interface name lets the
// system choose.
func Listen(ifaceName string, group string) (net.PacketConn, error) {
	addr, err := net.ResolveUDPAddr("udp4", group)
	if err != nil {
		return nil, fmt.Errorf("Error resolving discovery group %s: %w", group, err)
	}

	var iface *net.Interface
	if ifaceName != "" {
		iface, err = net.InterfaceByName(ifaceName)
		if err != nil {
			return nil, fmt.Errorf("Error reading interface %s: %w", ifaceName, err)
		}
	}

	conn, err := net.ListenMulticastUDP("udp4", iface, addr)
	if err != nil {
		return nil, fmt.Errorf("Error joining discovery group %s: %w", group, err)
	}
	return conn, nil
}

// HandlePending checks for one datagram, waiting no longer than the discovery
// read window. It reports whether a datagram was read.
func (d *Responder) HandlePending() bool {
	if err := d.conn.SetReadDeadline(time.Now().Add(constants.DiscoveryReadWindow)); err != nil {
		d.logger.Warn("unable to set discovery read deadline", "err", err)
		return false
	}

	n, from, err := d.conn.ReadFrom(d.buf)
	if err != nil {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			d.logger.Warn("discovery read failed", "err", err)
		}
		return false
	}

	request := string(d.buf[:n])
	if !IsSearch(request) {
		d.observe(metrics.DiscoveryIgnored)
		return true
	}

	d.logger.Debug("discovery search", "from", from)
	if _, err := d.conn.WriteTo([]byte(d.Reply()), from); err != nil {
		d.logger.Warn("discovery reply failed", "to", from, "err", err)
	}
	d.observe(metrics.DiscoveryReplied)
	return true
}

// Reply renders the search response for the current network identity.
func (d *Responder) Reply() string {
	facts := d.identity.Current()
	id := facts.BridgeID()
	return fmt.Sprintf(replyTemplate, facts.HostIP(), d.port, id, constants.UPnPUUIDPrefix, id)
}

func (d *Responder) Close() error {
	return d.conn.Close()
}

func (d *Responder) observe(result string) {
	if d.metrics != nil {
		d.metrics.DiscoveryDatagrams.WithLabelValues(result).Inc()
	}
}

// IsSearch is a loose substring match, not a header parser. A target at the very
// start of the datagram does not count.
func IsSearch(request string) bool {
	if !strings.Contains(request, searchMarker) {
		return false
	}
	for _, target := range searchTargets {
		if strings.Index(request, target) > 0 {
			return true
		}
	}
	return false
}

package discovery_test

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelibin/hughbridge/internal/discovery"
	"github.com/wheelibin/hughbridge/internal/metrics"
	"github.com/wheelibin/hughbridge/internal/network"
)

type datagram struct {
	payload []byte
	addr    net.Addr
}

// fakeConn hands out queued datagrams and records replies.
type fakeConn struct {
	inbound  []datagram
	sent     []datagram
	deadline time.Time
}

func (c *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	if len(c.inbound) == 0 {
		return 0, nil, os.ErrDeadlineExceeded
	}
	d := c.inbound[0]
	c.inbound = c.inbound[1:]
	return copy(p, d.payload), d.addr, nil
}

func (c *fakeConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	c.sent = append(c.sent, datagram{payload: append([]byte(nil), p...), addr: addr})
	return len(p), nil
}

func (c *fakeConn) Close() error                       { return nil }
func (c *fakeConn) LocalAddr() net.Addr                { return &net.UDPAddr{Port: 1900} }
func (c *fakeConn) SetDeadline(t time.Time) error      { c.deadline = t; return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { c.deadline = t; return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

const search = "M-SEARCH * HTTP/1.1\r\nHOST: 239.255.255.250:1900\r\nMAN: \"ssdp:discover\"\r\nMX: 3\r\nST: ssdp:all\r\n\r\n"

var client = &net.UDPAddr{IP: net.ParseIP("192.168.1.50"), Port: 50000}

func newResponder(t *testing.T, conn *fakeConn) (*discovery.Responder, *metrics.Collectors) {
	mac, err := net.ParseMAC("f0:08:d1:d2:cb:4c")
	require.NoError(t, err)
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	identity := network.StaticSource{IP: net.ParseIP("192.168.1.20"), MAC: mac}
	collectors := metrics.NewCollectors()
	return discovery.NewResponder(logger, conn, identity, 80, collectors), collectors
}

func Test_HandlePending(t *testing.T) {

	t.Run("nothing waiting returns straight away", func(t *testing.T) {
		conn := &fakeConn{}
		d, _ := newResponder(t, conn)

		assert.False(t, d.HandlePending())
		assert.Empty(t, conn.sent)
		assert.False(t, conn.deadline.IsZero())
	})

	t.Run("search gets exactly one unicast reply", func(t *testing.T) {
		// arrange
		conn := &fakeConn{inbound: []datagram{{payload: []byte(search), addr: client}}}
		d, collectors := newResponder(t, conn)

		// act
		handled := d.HandlePending()

		// assert
		assert.True(t, handled)
		require.Len(t, conn.sent, 1)
		assert.Equal(t, client, conn.sent[0].addr)
		assert.Equal(t, "HTTP/1.1 200 OK\r\n"+
			"EXT:\r\n"+
			"CACHE-CONTROL: max-age=100\r\n"+
			"LOCATION: http://192.168.1.20:80/description.xml\r\n"+
			"SERVER: FreeRTOS/6.0.5, UPnP/1.0, IpBridge/1.17.0\r\n"+
			"hue-bridgeid: f008d1d2cb4c\r\n"+
			"ST: urn:schemas-upnp-org:device:basic:1\r\n"+
			"USN: uuid:2f402f80-da50-11e1-9b23-f008d1d2cb4c::upnp:rootdevice\r\n"+
			"\r\n", string(conn.sent[0].payload))
		assert.Equal(t, 1.0, testutil.ToFloat64(collectors.DiscoveryDatagrams.WithLabelValues(metrics.DiscoveryReplied)))
	})

	t.Run("one datagram per call", func(t *testing.T) {
		conn := &fakeConn{inbound: []datagram{
			{payload: []byte(search), addr: client},
			{payload: []byte(search), addr: client},
		}}
		d, _ := newResponder(t, conn)

		d.HandlePending()
		assert.Len(t, conn.sent, 1)
		d.HandlePending()
		assert.Len(t, conn.sent, 2)
		assert.False(t, d.HandlePending())
	})

	t.Run("datagram without M-SEARCH is ignored", func(t *testing.T) {
		conn := &fakeConn{inbound: []datagram{{payload: []byte("NOTIFY * HTTP/1.1\r\nNT: upnp:rootdevice\r\n\r\n"), addr: client}}}
		d, collectors := newResponder(t, conn)

		assert.True(t, d.HandlePending())
		assert.Empty(t, conn.sent)
		assert.Equal(t, 1.0, testutil.ToFloat64(collectors.DiscoveryDatagrams.WithLabelValues(metrics.DiscoveryIgnored)))
	})

	t.Run("reply location follows the port", func(t *testing.T) {
		conn := &fakeConn{}
		logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
		d := discovery.NewResponder(logger, conn, network.StaticSource{IP: net.ParseIP("10.0.0.3")}, 8080, nil)

		assert.Contains(t, d.Reply(), "LOCATION: http://10.0.0.3:8080/description.xml\r\n")
		assert.Contains(t, d.Reply(), "hue-bridgeid: 000000000000\r\n")
	})
}

func Test_IsSearch(t *testing.T) {
	cases := []struct {
		name     string
		request  string
		expected bool
	}{
		{"generic discover", search, true},
		{"root device", "M-SEARCH * HTTP/1.1\r\nST: upnp:rootdevice\r\n", true},
		{"basic device", "M-SEARCH * HTTP/1.1\r\nST: urn:schemas-upnp-org:device:basic:1\r\n", true},
		{"other target", "M-SEARCH * HTTP/1.1\r\nST: urn:dial-multiscreen-org:service:dial:1\r\n", false},
		{"no marker", "NOTIFY * HTTP/1.1\r\nNTS: ssdp:discover\r\n", false},
		{"target at offset zero", "ssdp:discover M-SEARCH", false},
		{"empty", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, discovery.IsSearch(c.request))
		})
	}
}

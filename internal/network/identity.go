package network

import (
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/hughbridge/internal/constants"
)

// Facts are the host network facts every identity string is built from.
type Facts struct {
	IP  net.IP
	MAC net.HardwareAddr
}

// Source supplies the current facts. Implementations must not cache: the
// address can change while the bridge is running.
type Source interface {
	Current() Facts
}

// HostIP is the dotted quad of the IPv4 address, 0.0.0.0 when unknown.
func (f Facts) HostIP() string {
	if ip4 := f.IP.To4(); ip4 != nil {
		return ip4.String()
	}
	return net.IPv4zero.String()
}

// BridgeID is the mac address as lowercase hex without separators.
func (f Facts) BridgeID() string {
	return strings.ToLower(strings.ReplaceAll(f.macString(), ":", ""))
}

// UniqueID is the light id the Hue api reports for the light at index.
func (f Facts) UniqueID(index int) string {
	return fmt.Sprintf("%s:%s-%02X", strings.ToUpper(f.macString()), constants.UniqueIDPrefix, index)
}

// BaseURL is where the emulated api is served.
func (f Facts) BaseURL(port int) string {
	return fmt.Sprintf("http://%s:%d/", f.HostIP(), port)
}

func (f Facts) macString() string {
	if len(f.MAC) == 0 {
		return "00:00:00:00:00:00"
	}
	return f.MAC.String()
}

// StaticSource returns fixed facts.
type StaticSource Facts

func (s StaticSource) Current() Facts {
	return Facts(s)
}

// InterfaceSource reads the facts from a network interface on every call. With
// no name the first interface that is up, not loopback and has both a hardware
// and an IPv4 address is used.
type InterfaceSource struct {
	Name   string
	Logger *log.Logger
}

func (s InterfaceSource) Current() Facts {
	iface, err := s.lookup()
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("unable to read network identity", "interface", s.Name, "err", err)
		}
		return Facts{}
	}
	return Facts{IP: ipv4Of(*iface), MAC: iface.HardwareAddr}
}

func (s InterfaceSource) lookup() (*net.Interface, error) {
	if s.Name != "" {
		iface, err := net.InterfaceByName(s.Name)
		if err != nil {
			return nil, fmt.Errorf("error reading interface %s: %w", s.Name, err)
		}
		return iface, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("error listing interfaces: %w", err)
	}
	for i := range ifaces {
		iface := ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		if ipv4Of(iface) != nil {
			return &iface, nil
		}
	}
	return nil, fmt.Errorf("no usable network interface found")
}

func ipv4Of(iface net.Interface) net.IP {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4
			}
		}
	}
	return nil
}

// OverrideSource replaces the parts of another source's facts that are set.
type OverrideSource struct {
	Source Source
	IP     net.IP
	MAC    net.HardwareAddr
}

func (s OverrideSource) Current() Facts {
	var facts Facts
	if s.Source != nil && (s.IP == nil || s.MAC == nil) {
		facts = s.Source.Current()
	}
	if s.IP != nil {
		facts.IP = s.IP
	}
	if s.MAC != nil {
		facts.MAC = s.MAC
	}
	return facts
}

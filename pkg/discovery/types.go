package discovery

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

// Service constants.
const (
	// ServiceType is the DNS-SD service type of gateways.
	ServiceType = "_openclaw-gw._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// BrowseTimeout is the default duration of Find.
	BrowseTimeout = 3 * time.Second
)

// Discovery errors.
var (
	ErrInvalidPort        = errors.New("invalid gateway port")
	ErrInvalidFingerprint = errors.New("invalid certificate fingerprint")
)

// Gateway is a discovered gateway instance.
type Gateway struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// Host is the advertised host name, without the trailing dot.
	Host string

	// Port is the WebSocket port.
	Port uint16

	// Addresses are the IP addresses seen across interfaces.
	Addresses []string

	// DisplayName is the human readable name (falls back to InstanceName).
	DisplayName string

	// TLS is true when the gateway serves wss://.
	TLS bool

	// TLSFingerprint is the lowercase hex SHA-256 of the gateway
	// certificate, if advertised.
	TLSFingerprint string

	// TailnetDNS is the tailnet host name, if advertised.
	TailnetDNS string

	// Role is the advertised role.
	Role string
}

// URL returns the WebSocket URL of the gateway. The advertised host name
// is preferred; the first address is used when there is none.
func (g *Gateway) URL() string {
	scheme := "ws"
	if g.TLS {
		scheme = "wss"
	}

	host := g.Host
	if host == "" && len(g.Addresses) > 0 {
		host = g.Addresses[0]
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(int(g.Port)))
}

// Name returns DisplayName or the instance name.
func (g *Gateway) Name() string {
	if g.DisplayName != "" {
		return g.DisplayName
	}
	return g.InstanceName
}

func trimHost(host string) string {
	return strings.TrimSuffix(host, ".")
}

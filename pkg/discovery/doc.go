// Package discovery finds gateways on the local network over mDNS/DNS-SD.
//
// Gateways advertise the service type _openclaw-gw._tcp in the local.
// domain. The SRV record carries the WebSocket port; TXT records add
// presentation and TLS details:
//
//	displayName       human readable gateway name
//	gatewayPort       WebSocket port, used when the SRV port is missing
//	gatewayTls        "1" or "true" when the gateway serves wss://
//	gatewayTlsSha256  SHA-256 fingerprint of the gateway certificate
//	tailnetDns        tailnet host name, when the gateway is on a tailnet
//	role              advertised role, normally "gateway"
//
// A gateway reachable on several interfaces is reported once, with the
// addresses of all interfaces merged.
package discovery

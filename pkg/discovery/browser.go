package discovery

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds Find when the context has no deadline.
	// Default: 3 seconds.
	BrowseTimeout time.Duration

	// Interface restricts browsing to one network interface.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}

// browseFunc runs one DNS-SD browse, feeding entries and removals until ctx
// ends.
type browseFunc func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) error

// Browser browses for gateways.
type Browser struct {
	config BrowserConfig
	browse browseFunc

	mu      sync.Mutex
	stopped bool
	cancels []context.CancelFunc
}

// NewBrowser creates a gateway browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	b := &Browser{config: config}
	b.browse = func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) error {
		return zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}
	return b
}

// Browse streams gateways as they appear. Instances seen on several
// interfaces are emitted once. The channel is closed when ctx ends or Stop
// is called.
func (b *Browser) Browse(ctx context.Context) (<-chan *Gateway, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, context.Canceled
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	out := make(chan *Gateway)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go b.aggregate(ctx, entries, removed, out)
	go func() {
		_ = b.browse(ctx, entries, removed)
	}()

	return out, nil
}

// Find browses until ctx ends or the browse timeout elapses and returns
// every gateway seen. An expired timeout is not an error.
func (b *Browser) Find(ctx context.Context) ([]*Gateway, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.BrowseTimeout)
		defer cancel()
	}

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	var found []*Gateway
	for gw := range results {
		found = append(found, gw)
	}
	return found, nil
}

// Stop cancels all active browses.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// aggregate merges entries by instance name and emits each new instance.
func (b *Browser) aggregate(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- *Gateway) {
	defer close(out)

	services := make(map[string]*Gateway)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			gw := entryToGateway(entry)
			if gw == nil {
				continue
			}

			if existing, found := services[gw.InstanceName]; found {
				existing.Addresses = mergeAddresses(existing.Addresses, gw.Addresses)
				continue
			}

			services[gw.InstanceName] = gw
			// Emit a copy so later merges do not race with the reader.
			emitted := *gw
			emitted.Addresses = append([]string(nil), gw.Addresses...)
			select {
			case out <- &emitted:
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if existing, found := services[entry.Instance]; found {
				existing.Addresses = removeAddresses(existing.Addresses, entry)
				if len(existing.Addresses) == 0 {
					delete(services, entry.Instance)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToGateway converts a zeroconf entry. Entries with unusable TXT
// records or no port are skipped.
func entryToGateway(entry *zeroconf.ServiceEntry) *Gateway {
	info, err := DecodeGatewayTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil
	}

	port := uint16(entry.Port)
	if port == 0 {
		port = info.Port
	}
	if port == 0 {
		return nil
	}

	return &Gateway{
		InstanceName:   entry.Instance,
		Host:           trimHost(entry.HostName),
		Port:           port,
		Addresses:      entryAddresses(entry),
		DisplayName:    info.DisplayName,
		TLS:            info.TLS,
		TLSFingerprint: info.TLSFingerprint,
		TailnetDNS:     info.TailnetDNS,
		Role:           info.Role,
	}
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the addresses of entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"

	"github.com/enbility/zeroconf/v3"
)

// Default browse parameters.
const (
	DefaultService = "_jughead-ball._udp"
	DefaultDomain  = "local."
)

// BrowserConfig configures an MDNSBrowser.
type BrowserConfig struct {
	// Service is the DNS-SD service type. Default DefaultService.
	Service string

	// Domain is the browse domain. Default DefaultDomain.
	Domain string

	// Interface restricts browsing to one network interface.
	// Empty string means all interfaces.
	Interface string
}

// MDNSBrowser implements Browser using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Domain == "" {
		config.Domain = DefaultDomain
	}
	if config.Interface != "" {
		if _, err := net.InterfaceByName(config.Interface); err != nil {
			return nil, fmt.Errorf("discovery: interface %q: %w", config.Interface, err)
		}
	}
	return &MDNSBrowser{config: config}, nil
}

// Browse searches for balls until ctx is cancelled.
//
// Entries are keyed by instance name. A service is emitted when first
// seen and again whenever its addresses change; a removal forgets it so a
// later announcement is emitted afresh.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan Service, error) {
	out := make(chan Service)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(map[string]Service)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToService(entry)
				if prev, found := seen[svc.Instance]; found && sameAddresses(prev, svc) {
					continue
				}
				seen[svc.Instance] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				delete(seen, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, b.config.Service, b.config.Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		if iface, err := net.InterfaceByName(b.config.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

func entryToService(entry *zeroconf.ServiceEntry) Service {
	svc := Service{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     entry.Port,
		Text:     slices.Clone(entry.Text),
	}
	for _, ip := range entry.AddrIPv4 {
		svc.IPv4 = append(svc.IPv4, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		svc.IPv6 = append(svc.IPv6, ip.String())
	}
	return svc
}

func sameAddresses(a, b Service) bool {
	return a.Port == b.Port && slices.Equal(a.IPv4, b.IPv4) && slices.Equal(a.IPv6, b.IPv6) &&
		slices.Equal(a.Text, b.Text)
}

var _ Browser = (*MDNSBrowser)(nil)

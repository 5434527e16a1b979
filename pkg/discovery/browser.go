package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Discovery errors.
var (
	// ErrNotFound indicates no endpoint was discovered in time.
	ErrNotFound = errors.New("discovery: endpoint not found")
)

// Defaults for service browsing.
const (
	// DefaultService is the browsed mDNS service type.
	DefaultService = "_taut._tcp"

	// DefaultDomain is the mDNS browse domain.
	DefaultDomain = "local."

	// DefaultBrowseTimeout bounds a single resolve.
	DefaultBrowseTimeout = 10 * time.Second
)

// Endpoint is a discovered connection target.
type Endpoint struct {
	// Instance is the advertised service instance name.
	Instance string

	// Host is the advertised hostname.
	Host string

	// Port is the advertised port.
	Port int

	// Addresses holds the resolved IPv4 and IPv6 addresses.
	Addresses []string

	// Secure selects the wss scheme. Derived from a "secure=1" TXT
	// record.
	Secure bool

	// Path is the request path from a "path=" TXT record.
	Path string
}

// URL builds the WebSocket URL for the endpoint, preferring the first
// resolved address over the hostname.
func (e *Endpoint) URL() string {
	scheme := "ws"
	if e.Secure {
		scheme = "wss"
	}

	host := e.Host
	if len(e.Addresses) > 0 {
		host = e.Addresses[0]
	}
	host = strings.TrimSuffix(host, ".")

	path := e.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, fmt.Sprint(e.Port)), path)
}

// Config configures a Browser.
type Config struct {
	// Service is the mDNS service type to browse.
	// Defaults to DefaultService.
	Service string

	// Domain is the browse domain. Defaults to DefaultDomain.
	Domain string

	// Interface restricts browsing to a named network interface.
	// Empty means all interfaces.
	Interface string

	// Timeout bounds Resolve. Defaults to DefaultBrowseTimeout.
	Timeout time.Duration
}

// Browser discovers endpoints via mDNS.
type Browser struct {
	config Config

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewBrowser creates a browser with the given configuration.
func NewBrowser(config Config) *Browser {
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Domain == "" {
		config.Domain = DefaultDomain
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultBrowseTimeout
	}
	return &Browser{config: config}
}

// Browse streams discovered endpoints until ctx is cancelled. The
// returned channel is closed when browsing stops. Endpoints are
// aggregated by instance name so multi-interface announcements emit
// once.
func (b *Browser) Browse(ctx context.Context) (<-chan *Endpoint, error) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	out := make(chan *Endpoint)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(map[string]*Endpoint)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				ep := entryToEndpoint(entry)
				if ep == nil {
					continue
				}
				if existing, found := seen[ep.Instance]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, ep.Addresses)
					continue
				}
				seen[ep.Instance] = ep
				select {
				case out <- ep:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(seen, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, b.config.Service, b.config.Domain, entries, removed, b.clientOptions()...)
	}()

	return out, nil
}

// Resolve returns the first endpoint discovered within the configured
// timeout.
func (b *Browser) Resolve(ctx context.Context) (*Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case ep, ok := <-results:
		if !ok {
			return nil, ErrNotFound
		}
		return ep, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNotFound, ctx.Err())
	}
}

// Provider adapts the browser into a per-attempt address resolver.
// Each connection attempt triggers a fresh resolve; the previous
// address is returned unchanged when discovery comes up empty but an
// earlier attempt already resolved one.
func (b *Browser) Provider() func(retryCount int, previousURL string) (string, error) {
	return func(retryCount int, previousURL string) (string, error) {
		ep, err := b.Resolve(context.Background())
		if err != nil {
			if previousURL != "" {
				return previousURL, nil
			}
			return "", err
		}
		return ep.URL(), nil
	}
}

// Stop cancels any active browse.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
}

// clientOptions builds zeroconf options from the configuration.
func (b *Browser) clientOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// entryToEndpoint converts a zeroconf entry.
func entryToEndpoint(entry *zeroconf.ServiceEntry) *Endpoint {
	if entry == nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	ep := &Endpoint{
		Instance:  entry.Instance,
		Host:      entry.HostName,
		Port:      entry.Port,
		Addresses: addrs,
	}
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		switch key {
		case "secure":
			ep.Secure = value == "1" || value == "true"
		case "path":
			ep.Path = value
		}
	}
	return ep
}

// mergeAddresses appends new addresses, skipping duplicates.
func mergeAddresses(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range incoming {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

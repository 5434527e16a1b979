package discovery

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Advertisement describes an announced endpoint.
type Advertisement struct {
	// Instance is the service instance name.
	Instance string

	// Port is the listening port.
	Port int

	// Secure marks the endpoint as wss.
	Secure bool

	// Path is the request path clients should use.
	Path string

	// TTL overrides the record time-to-live.
	TTL time.Duration
}

// Advertiser announces an endpoint over mDNS.
type Advertiser struct {
	config Config

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser with the given configuration.
func NewAdvertiser(config Config) *Advertiser {
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Domain == "" {
		config.Domain = DefaultDomain
	}
	return &Advertiser{config: config}
}

// Advertise starts announcing ad, replacing any prior announcement.
func (a *Advertiser) Advertise(ad Advertisement) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var txt []string
	if ad.Secure {
		txt = append(txt, "secure=1")
	}
	if ad.Path != "" {
		txt = append(txt, "path="+ad.Path)
	}

	var opts []zeroconf.ServerOption
	if ad.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(ad.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		ad.Instance,
		a.config.Service,
		a.config.Domain,
		ad.Port,
		txt,
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("register service: %w", err)
	}

	a.server = server
	return nil
}

// Stop withdraws the announcement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// interfaces resolves the configured interface restriction.
// Nil means all interfaces.
func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

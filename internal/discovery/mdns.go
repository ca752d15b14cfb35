package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements Advertiser using zeroconf.
type MDNSAdvertiser struct {
	config Config

	mu     sync.Mutex
	server *zeroconf.Server
}

func NewMDNSAdvertiser(config Config) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// interfaces returns nil to advertise on every interface.
func (a *MDNSAdvertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		slog.Warn("mDNS interface not found, advertising on all interfaces",
			"interface", a.config.Interface,
			"error", err)
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise registers the portal service, replacing any previous
// registration.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info PortalInfo) error {
	if err := info.validate(); err != nil {
		return fmt.Errorf("failed to advertise portal: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.DeviceName,
		ServiceType,
		Domain,
		info.Port,
		info.TXT(),
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register portal service: %w", err)
	}

	a.server = server
	slog.Info("Advertising portal over mDNS",
		"instance", info.DeviceName,
		"service", ServiceType,
		"port", info.Port)
	return nil
}

func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		slog.Info("Stopped mDNS advertisement")
	}
}

// Package discovery advertises the provisioning portal on the local link so
// setup apps can find it without knowing the gateway address.
package discovery

import (
	"context"
	"fmt"
	"time"
)

const (
	ServiceType = "_http._tcp"
	Domain      = "local."

	// TXTVersion is bumped when the TXT layout changes.
	TXTVersion = "1"
)

type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Interface restricts advertisement to one interface. Empty means all.
	Interface string        `mapstructure:"interface"`
	TTL       time.Duration `mapstructure:"ttl"`
}

func DefaultConfig() Config {
	return Config{
		Enabled: true,
		TTL:     120 * time.Second,
	}
}

// PortalInfo describes the portal being advertised.
type PortalInfo struct {
	DeviceName string
	Port       int
	Path       string
}

// TXT returns the TXT strings published with the service.
func (p PortalInfo) TXT() []string {
	path := p.Path
	if path == "" {
		path = "/"
	}
	return []string{
		"path=" + path,
		"v=" + TXTVersion,
	}
}

func (p PortalInfo) validate() error {
	if p.DeviceName == "" {
		return fmt.Errorf("device name is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d", p.Port)
	}
	return nil
}

type Advertiser interface {
	Advertise(ctx context.Context, info PortalInfo) error
	Stop()
}

// Nop advertises nothing. Used when discovery is disabled.
type Nop struct{}

func (Nop) Advertise(context.Context, PortalInfo) error { return nil }
func (Nop) Stop()                                       {}

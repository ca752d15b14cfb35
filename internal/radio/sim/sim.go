// Package sim is a simulated radio driver for bench runs and tests. It
// models a neighbourhood of access points and accepts a client association
// when the configured SSID and passphrase match one of them.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/EternisAI/silo-device/internal/radio"
	"github.com/EternisAI/silo-device/internal/secret"
)

var (
	ErrNotStarted     = errors.New("radio not started")
	ErrNotConfigured  = errors.New("radio not configured")
	ErrWrongMode      = errors.New("operation not valid in current mode")
	ErrNetworkMissing = errors.New("network not in range")
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNotAssociated  = errors.New("not associated")
)

// Network is a simulated access point.
type Network struct {
	SSID       string `mapstructure:"ssid"`
	Channel    uint8  `mapstructure:"channel"`
	Passphrase string `mapstructure:"passphrase"`
	RSSI       int    `mapstructure:"rssi"`
	// Address handed out by the network's DHCP server, e.g. "192.168.1.50/24".
	Address string `mapstructure:"address"`
}

type Config struct {
	Networks []Network `mapstructure:"networks"`
	// Latency delays Connect and WaitNetifUp.
	Latency time.Duration `mapstructure:"latency"`
}

type mode int

const (
	modeNone mode = iota
	modeClient
	modeAccessPoint
)

type Radio struct {
	mu sync.Mutex

	cfg       Config
	mode      mode
	client    radio.ClientConfig
	ap        radio.AccessPointConfig
	started   bool
	connected *Network
	scans     int
}

func New(cfg Config) *Radio {
	return &Radio{cfg: cfg}
}

func (r *Radio) SetClientConfig(cfg radio.ClientConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	secret.Wipe(r.client.Password)
	cfg.Password = append([]byte(nil), cfg.Password...)
	r.client = cfg
	r.mode = modeClient
	r.connected = nil
	return nil
}

func (r *Radio) SetAccessPointConfig(cfg radio.AccessPointConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.Auth == radio.AuthWPA2Personal && len(cfg.Password) < radio.MinPassphraseLen {
		return fmt.Errorf("access point passphrase shorter than %d bytes", radio.MinPassphraseLen)
	}
	secret.Wipe(r.ap.Password)
	cfg.Password = append([]byte(nil), cfg.Password...)
	r.ap = cfg
	r.mode = modeAccessPoint
	return nil
}

func (r *Radio) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == modeNone {
		return ErrNotConfigured
	}
	r.started = true
	if r.mode == modeAccessPoint {
		slog.Info("Simulated access point up",
			"ssid", r.ap.SSID,
			"channel", r.ap.Channel,
			"gateway", r.ap.Gateway)
	}
	return ctx.Err()
}

func (r *Radio) Scan(ctx context.Context) ([]radio.AccessPointInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil, ErrNotStarted
	}
	if r.mode != modeClient {
		return nil, ErrWrongMode
	}
	r.scans++

	infos := make([]radio.AccessPointInfo, 0, len(r.cfg.Networks))
	for _, n := range r.cfg.Networks {
		auth := radio.AuthWPA2Personal
		if n.Passphrase == "" {
			auth = radio.AuthNone
		}
		infos = append(infos, radio.AccessPointInfo{SSID: n.SSID, Channel: n.Channel, RSSI: n.RSSI, Auth: auth})
	}
	return infos, ctx.Err()
}

func (r *Radio) Connect(ctx context.Context) error {
	if err := r.wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}
	if r.mode != modeClient {
		return ErrWrongMode
	}

	for i := range r.cfg.Networks {
		n := &r.cfg.Networks[i]
		if n.SSID != r.client.SSID {
			continue
		}
		if r.client.Channel != 0 && r.client.Channel != n.Channel {
			continue
		}
		if n.Passphrase != string(r.client.Password) {
			return ErrAuthFailed
		}
		r.connected = n
		return nil
	}
	return ErrNetworkMissing
}

func (r *Radio) WaitNetifUp(ctx context.Context) (radio.IPInfo, error) {
	if err := r.wait(ctx); err != nil {
		return radio.IPInfo{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connected == nil {
		return radio.IPInfo{}, ErrNotAssociated
	}
	if r.connected.Address == "" {
		// No DHCP lease; block until the caller gives up.
		r.mu.Unlock()
		<-ctx.Done()
		r.mu.Lock()
		return radio.IPInfo{}, ctx.Err()
	}

	prefix, err := netip.ParsePrefix(r.connected.Address)
	if err != nil {
		return radio.IPInfo{}, fmt.Errorf("invalid simulated address %q: %w", r.connected.Address, err)
	}
	gateway := prefix.Masked().Addr().Next()
	return radio.IPInfo{IP: prefix.Addr(), Gateway: gateway, Mask: prefix.Bits()}, nil
}

func (r *Radio) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	secret.Wipe(r.client.Password)
	secret.Wipe(r.ap.Password)
	r.client.Password, r.ap.Password = nil, nil
	r.started = false
	r.connected = nil
	return nil
}

// Started reports whether the radio is running.
func (r *Radio) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Client returns the current client configuration with the passphrase
// redacted to its length.
func (r *Radio) Client() (radio.ClientConfig, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg := r.client
	cfg.Password = nil
	return cfg, len(r.client.Password)
}

func (r *Radio) wait(ctx context.Context) error {
	if r.cfg.Latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(r.cfg.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

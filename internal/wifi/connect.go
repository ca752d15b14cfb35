// Package wifi joins the device to its configured network.
package wifi

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/EternisAI/silo-device/internal/radio"
)

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultAddressTimeout = 30 * time.Second
)

type Options struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	AddressTimeout time.Duration `mapstructure:"address_timeout"`
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.AddressTimeout <= 0 {
		o.AddressTimeout = DefaultAddressTimeout
	}
	return o
}

// Connection is a live association. It owns the radio: the network stays
// up for as long as the Connection is open, and Close tears it down. Keep
// it alive for the whole time the network is in use.
type Connection struct {
	radio radio.Radio
	ssid  string
	info  radio.IPInfo

	closeOnce sync.Once
	closeErr  error
}

func (c *Connection) SSID() string {
	return c.ssid
}

func (c *Connection) IPInfo() radio.IPInfo {
	return c.info
}

// Close stops the radio. Idempotent.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		slog.Info("Tearing down WiFi connection", "ssid", c.ssid)
		c.closeErr = c.radio.Stop()
	})
	return c.closeErr
}

// Connect joins the network named ssid. An empty password selects an open
// network. The password is handed to the radio and never logged; the caller
// keeps ownership of it and may wipe it once Connect returns.
func Connect(ctx context.Context, ssid string, password []byte, r radio.Radio, opts Options) (*Connection, error) {
	opts = opts.withDefaults()

	if ssid == "" {
		return nil, &JoinError{Step: "validate", Kind: ErrInvalidSSID}
	}

	slog.Info("WiFi password length", "bytes", len(password))

	auth := radio.AuthWPA2Personal
	if len(password) == 0 {
		auth = radio.AuthNone
		slog.Info("WiFi password empty, using open network")
	}

	if err := r.SetClientConfig(radio.ClientConfig{}); err != nil {
		return nil, &JoinError{Step: "configure", Kind: ErrRadio, Err: err}
	}

	slog.Info("Starting WiFi...")
	if err := r.Start(ctx); err != nil {
		stop(r)
		return nil, &JoinError{Step: "start", Kind: ErrRadio, Err: err}
	}

	channel := scanForChannel(ctx, r, ssid)

	cfg := radio.ClientConfig{
		SSID:     ssid,
		Password: password,
		Channel:  channel,
		Auth:     auth,
	}
	if err := r.SetClientConfig(cfg); err != nil {
		stop(r)
		return nil, &JoinError{Step: "configure", Kind: ErrRadio, Err: err}
	}

	slog.Info("Connecting to network", "ssid", ssid, "auth", auth)
	connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	err := r.Connect(connectCtx)
	cancel()
	if err != nil {
		stop(r)
		return nil, &JoinError{Step: "connect", Kind: ErrConnectFailed, Err: err}
	}

	slog.Info("Waiting for DHCP lease...")
	addrCtx, cancel := context.WithTimeout(ctx, opts.AddressTimeout)
	info, err := r.WaitNetifUp(addrCtx)
	cancel()
	if err != nil {
		stop(r)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &JoinError{Step: "address", Kind: ErrAddressTimeout, Err: err}
		}
		return nil, &JoinError{Step: "address", Kind: ErrRadio, Err: err}
	}

	slog.Info("WiFi connected",
		"ssid", ssid,
		"ip", info.IP,
		"gateway", info.Gateway,
		"mask", info.Mask)

	return &Connection{radio: r, ssid: ssid, info: info}, nil
}

// With joins the network, runs fn and closes the connection on every path.
func With(ctx context.Context, ssid string, password []byte, r radio.Radio, opts Options, fn func(*Connection) error) error {
	conn, err := Connect(ctx, ssid, password, r, opts)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

// scanForChannel looks for ssid among visible networks and returns its
// channel, or 0 when it is not found. Scan failures are not fatal: the
// driver can still negotiate the channel during association.
func scanForChannel(ctx context.Context, r radio.Radio, ssid string) uint8 {
	slog.Info("Scanning for networks...")
	infos, err := r.Scan(ctx)
	if err != nil {
		slog.Warn("WiFi scan failed, continuing without fixed channel", "error", err)
		return 0
	}

	for _, ap := range infos {
		if ap.SSID == ssid {
			slog.Info("Found access point", "ssid", ssid, "channel", ap.Channel, "rssi", ap.RSSI)
			return ap.Channel
		}
	}

	slog.Info("Access point not found in scan, letting driver pick channel", "ssid", ssid, "visible", len(infos))
	return 0
}

func stop(r radio.Radio) {
	if err := r.Stop(); err != nil {
		slog.Warn("Failed to stop radio after join failure", "error", err)
	}
}

// Package device decides on boot whether to provision or to join the
// configured network.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EternisAI/silo-device/internal/credentials"
	"github.com/EternisAI/silo-device/internal/radio"
	"github.com/EternisAI/silo-device/internal/wifi"
)

// ErrRestarting is returned when provisioning finished and the restarter
// handed control back instead of rebooting.
var ErrRestarting = errors.New("device restarting after provisioning")

type CredentialStore interface {
	IsProvisioned() bool
	Load() (*credentials.Record, error)
}

type Provisioner interface {
	Run(ctx context.Context) error
}

type Flow struct {
	Store       CredentialStore
	Radio       radio.Radio
	Provisioner Provisioner
	JoinOptions wifi.Options
}

// Run enters provisioning on an unconfigured device. Otherwise it loads the
// stored credentials and joins the network, returning a connection the
// caller must keep open for as long as the network is in use.
func (f *Flow) Run(ctx context.Context) (*wifi.Connection, error) {
	if !f.Store.IsProvisioned() {
		slog.Info("Device not provisioned, entering setup mode")
		if err := f.Provisioner.Run(ctx); err != nil {
			return nil, err
		}
		return nil, ErrRestarting
	}

	rec, err := f.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	defer rec.Wipe()

	slog.Info("Device provisioned",
		"device_id", string(rec.DeviceID),
		"ssid", string(rec.SSID))

	conn, err := wifi.Connect(ctx, string(rec.SSID), rec.Password, f.Radio, f.JoinOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to join network: %w", err)
	}
	return conn, nil
}

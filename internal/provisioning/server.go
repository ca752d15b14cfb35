// Package provisioning runs the setup access point and portal that collect
// network credentials from an operator on first boot.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"time"

	internalhttp "github.com/EternisAI/silo-device/internal/api/http"
	"github.com/EternisAI/silo-device/internal/api/http/handler"
	"github.com/EternisAI/silo-device/internal/discovery"
	"github.com/EternisAI/silo-device/internal/radio"
)

var ErrSetup = errors.New("provisioning setup failed")

// Restarter reboots the device. Production implementations do not return
// on success.
type Restarter interface {
	Restart() error
}

type Deps struct {
	Radio      radio.Radio
	Store      handler.CredentialStore
	Restarter  Restarter
	Advertiser discovery.Advertiser
}

type Server struct {
	cfg        Config
	http       internalhttp.Config
	radio      radio.Radio
	store      handler.CredentialStore
	restarter  Restarter
	advertiser discovery.Advertiser
	signal     *Signal
}

func NewServer(cfg Config, httpCfg internalhttp.Config, deps Deps) *Server {
	advertiser := deps.Advertiser
	if advertiser == nil {
		advertiser = discovery.Nop{}
	}
	return &Server{
		cfg:        cfg.withDefaults(),
		http:       httpCfg,
		radio:      deps.Radio,
		store:      deps.Store,
		restarter:  deps.Restarter,
		advertiser: advertiser,
		signal:     &Signal{},
	}
}

// Signal exposes the completion flag set by the portal.
func (s *Server) Signal() *Signal {
	return s.signal
}

// Run brings up the access point and portal, waits for a submission and
// then restarts the device. With a production Restarter it does not return
// once provisioning completes. It returns ctx.Err() when ctx is cancelled
// first, and an error wrapping ErrSetup when the portal cannot be brought
// up.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("Starting provisioning mode...")

	gateway, err := s.validate()
	if err != nil {
		return err
	}

	if err := s.startAccessPoint(ctx, gateway); err != nil {
		return err
	}

	if err := sleep(ctx, s.cfg.SettleDelay); err != nil {
		s.stopRadio()
		return err
	}
	slog.Info("Provisioning mode active", "ssid", s.cfg.SSID, "gateway", gateway.Addr())

	engine := internalhttp.NewEngine(s.http, &internalhttp.Services{
		Store:      s.store,
		Completion: s.signal,
	})
	listener := internalhttp.NewListener(engine)

	host := s.cfg.ListenHost
	if host == "" {
		host = gateway.Addr().String()
	}
	addr := net.JoinHostPort(host, strconv.FormatUint(uint64(s.cfg.Port), 10))
	if err := listener.Start(addr); err != nil {
		s.stopRadio()
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}

	s.advertise(ctx, listener.Addr())

	teardown := func() {
		s.advertiser.Stop()
		if err := listener.Stop(); err != nil {
			slog.Warn("Failed to stop portal listener", "error", err)
		}
		s.stopRadio()
	}

	slog.Info("Waiting for user to complete setup...")
	if err := s.waitCompleted(ctx); err != nil {
		teardown()
		return err
	}

	slog.Info("Provisioning completed, restarting", "delay", s.cfg.RestartDelay)
	if err := sleep(ctx, s.cfg.RestartDelay); err != nil {
		teardown()
		return err
	}
	teardown()

	if s.restarter == nil {
		return nil
	}
	if err := s.restarter.Restart(); err != nil {
		return fmt.Errorf("failed to restart device: %w", err)
	}
	return nil
}

func (s *Server) validate() (netip.Prefix, error) {
	if len(s.cfg.Passphrase) < radio.MinPassphraseLen {
		return netip.Prefix{}, fmt.Errorf("%w: access point passphrase must be at least %d characters",
			ErrSetup, radio.MinPassphraseLen)
	}

	gateway, err := netip.ParsePrefix(s.cfg.Gateway)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: invalid gateway %q: %w", ErrSetup, s.cfg.Gateway, err)
	}
	if !gateway.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: gateway %s is not IPv4", ErrSetup, gateway)
	}
	return gateway, nil
}

func (s *Server) startAccessPoint(ctx context.Context, gateway netip.Prefix) error {
	cfg := radio.AccessPointConfig{
		SSID:           s.cfg.SSID,
		Password:       []byte(s.cfg.Passphrase),
		Channel:        s.cfg.Channel,
		Auth:           radio.AuthWPA2Personal,
		MaxConnections: s.cfg.MaxConnections,
		Gateway:        gateway,
	}
	if err := s.radio.SetAccessPointConfig(cfg); err != nil {
		return fmt.Errorf("%w: failed to configure access point: %w", ErrSetup, err)
	}
	if err := s.radio.Start(ctx); err != nil {
		s.stopRadio()
		return fmt.Errorf("%w: failed to start access point: %w", ErrSetup, err)
	}
	return nil
}

func (s *Server) advertise(ctx context.Context, addr net.Addr) {
	if s.cfg.DeviceName == "" {
		return
	}
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return
	}
	err := s.advertiser.Advertise(ctx, discovery.PortalInfo{
		DeviceName: s.cfg.DeviceName,
		Port:       tcp.Port,
		Path:       "/",
	})
	if err != nil {
		slog.Warn("Portal discovery unavailable", "error", err)
	}
}

func (s *Server) waitCompleted(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Provisioning cancelled")
			return ctx.Err()
		case <-ticker.C:
			if s.signal.Completed() {
				return nil
			}
		}
	}
}

func (s *Server) stopRadio() {
	if err := s.radio.Stop(); err != nil {
		slog.Warn("Failed to stop radio", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package radio defines the WiFi radio capability the agent drives.
//
// A Radio runs either as a client (station) joining a network or as an
// access point hosting one. Drivers that keep a passphrase beyond the call
// that received it must copy it; callers wipe their copy as soon as the call
// returns.
package radio

import (
	"context"
	"fmt"
	"net/netip"
)

type AuthMethod int

const (
	AuthNone AuthMethod = iota
	AuthWPA2Personal
)

func (a AuthMethod) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthWPA2Personal:
		return "wpa2-personal"
	default:
		return fmt.Sprintf("auth(%d)", int(a))
	}
}

// MinPassphraseLen is the shortest passphrase WPA2-Personal accepts.
const MinPassphraseLen = 8

// ClientConfig configures station mode. Channel 0 lets the driver pick.
type ClientConfig struct {
	SSID     string
	Password []byte
	Channel  uint8
	Auth     AuthMethod
}

type AccessPointConfig struct {
	SSID           string
	Password       []byte
	Channel        uint8
	Auth           AuthMethod
	MaxConnections int
	Gateway        netip.Prefix
}

// AccessPointInfo is one scan result.
type AccessPointInfo struct {
	SSID    string
	Channel uint8
	RSSI    int
	Auth    AuthMethod
}

type IPInfo struct {
	IP      netip.Addr
	Gateway netip.Addr
	Mask    int
}

type Radio interface {
	SetClientConfig(cfg ClientConfig) error
	SetAccessPointConfig(cfg AccessPointConfig) error
	Start(ctx context.Context) error
	// Scan lists visible networks. Client mode only.
	Scan(ctx context.Context) ([]AccessPointInfo, error)
	// Connect blocks until the link layer reports association.
	Connect(ctx context.Context) error
	// WaitNetifUp blocks until the client interface has an address.
	WaitNetifUp(ctx context.Context) (IPInfo, error)
	// Stop tears down any association or hosted network.
	Stop() error
}

package provisioning

import "time"

const (
	DefaultSSID           = "Silo-Setup"
	DefaultPassphrase     = "setup1234"
	DefaultChannel        = 1
	DefaultMaxConnections = 4
	DefaultGateway        = "192.168.4.1/24"
	DefaultPort           = 80

	DefaultSettleDelay  = 500 * time.Millisecond
	DefaultPollInterval = time.Second
	DefaultRestartDelay = 3 * time.Second
)

// Config describes the setup access point and the portal served on it.
type Config struct {
	SSID           string `mapstructure:"ssid"`
	Passphrase     string `mapstructure:"passphrase"`
	Channel        uint8  `mapstructure:"channel"`
	MaxConnections int    `mapstructure:"max_connections"`
	// Gateway is the access point address in CIDR form.
	Gateway string `mapstructure:"gateway"`
	// ListenHost overrides the address the portal binds to. Empty binds the
	// gateway address.
	ListenHost string `mapstructure:"listen_host"`
	Port       uint   `mapstructure:"port"`
	DeviceName string `mapstructure:"device_name"`

	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	RestartDelay time.Duration `mapstructure:"restart_delay"`
}

func DefaultConfig() Config {
	return Config{
		SSID:           DefaultSSID,
		Passphrase:     DefaultPassphrase,
		Channel:        DefaultChannel,
		MaxConnections: DefaultMaxConnections,
		Gateway:        DefaultGateway,
		Port:           DefaultPort,
		SettleDelay:    DefaultSettleDelay,
		PollInterval:   DefaultPollInterval,
		RestartDelay:   DefaultRestartDelay,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SSID == "" {
		c.SSID = d.SSID
	}
	if c.Channel == 0 {
		c.Channel = d.Channel
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = d.MaxConnections
	}
	if c.Gateway == "" {
		c.Gateway = d.Gateway
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.RestartDelay < 0 {
		c.RestartDelay = 0
	}
	return c
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EternisAI/silo-device/internal/api/http"
	"github.com/EternisAI/silo-device/internal/discovery"
	"github.com/EternisAI/silo-device/internal/provisioning"
	"github.com/EternisAI/silo-device/internal/radio/sim"
	"github.com/EternisAI/silo-device/internal/wifi"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          LogConfig           `mapstructure:"log"`
	Http         http.Config         `mapstructure:"http"`
	Storage      StorageConfig       `mapstructure:"storage"`
	Provisioning provisioning.Config `mapstructure:"provisioning"`
	Discovery    discovery.Config    `mapstructure:"discovery"`
	WiFi         wifi.Options        `mapstructure:"wifi"`
	Radio        sim.Config          `mapstructure:"radio"`
	Restart      RestartConfig       `mapstructure:"restart"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
	// SealKey is a hex encoded 256-bit key. When set, credential values are
	// encrypted at rest.
	SealKey string `mapstructure:"seal_key" json:"-"`
}

type RestartConfig struct {
	// Delay before re-executing after a failed boot.
	Delay time.Duration `mapstructure:"delay"`
}

var config Config

func setDefaults(v *viper.Viper) {
	p := provisioning.DefaultConfig()
	d := discovery.DefaultConfig()

	v.SetDefault("log.level", LOG_LEVEL_INFO)
	v.SetDefault("http.port", p.Port)
	v.SetDefault("storage.path", "./data/nvs.db")
	v.SetDefault("provisioning.ssid", p.SSID)
	v.SetDefault("provisioning.passphrase", p.Passphrase)
	v.SetDefault("provisioning.channel", p.Channel)
	v.SetDefault("provisioning.max_connections", p.MaxConnections)
	v.SetDefault("provisioning.gateway", p.Gateway)
	v.SetDefault("provisioning.settle_delay", p.SettleDelay)
	v.SetDefault("provisioning.poll_interval", p.PollInterval)
	v.SetDefault("provisioning.restart_delay", p.RestartDelay)
	v.SetDefault("discovery.enabled", d.Enabled)
	v.SetDefault("discovery.ttl", d.TTL)
	v.SetDefault("wifi.connect_timeout", wifi.DefaultConnectTimeout)
	v.SetDefault("wifi.address_timeout", wifi.DefaultAddressTimeout)
	v.SetDefault("restart.delay", 10*time.Second)
}

// InitConfig loads application.yaml, applies environment overrides and sets
// up the logger. A missing config file is not an error: defaults cover a
// bench run.
func InitConfig(configFile string) error {
	_ = godotenv.Load()

	v := viper.GetViper()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("application")
		v.AddConfigPath(".")
		v.AddConfigPath("./cmd/silo-device-agent")
		v.SetConfigType("yaml")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("storage.seal_key", "SILO_SEAL_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	// Port lives under http so CORS and port are configured together.
	config.Provisioning.Port = config.Http.Port

	initLogger(config.Log.Level)

	// Pretty print config as JSON (only at DEBUG level)
	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		configJSON, err := json.MarshalIndent(config, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
	return nil
}

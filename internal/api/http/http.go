package http

type Config struct {
	Port uint       `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig opens the portal to companion setup apps served from another
// origin.
type CORSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

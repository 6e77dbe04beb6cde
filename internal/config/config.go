package config

import "time"

// Config holds runtime settings for the storefront CLI.
//
// Fields:
//   - GatewayBaseURL: base URL of the backend HTTP API.
//   - DatabasePath: path of the local SQLite cache database.
//   - RefreshCheckInterval: how often the refresh loop inspects the token.
//   - RefreshThreshold: remaining token lifetime below which a refresh runs.
type Config struct {
	GatewayBaseURL       string
	DatabasePath         string
	RefreshCheckInterval time.Duration
	RefreshThreshold     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.GatewayBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "storefront.db"
	c.RefreshCheckInterval = time.Minute
	c.RefreshThreshold = 10 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (including a .env file if present), JSON (if present), and
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with environment variables. A .env file in the
// working directory is loaded first if present; real environment variables
// win over .env entries (godotenv never overrides existing ones).
//
// Recognized variables:
//
//	STOREFRONT_GATEWAY_URL      base URL of the backend API
//	STOREFRONT_DB_PATH          path of the local SQLite database
//	STOREFRONT_REFRESH_INTERVAL refresh loop tick, e.g. "1m"
//	STOREFRONT_REFRESH_THRESHOLD remaining lifetime triggering refresh, e.g. "10m"
//
// Unparsable durations are ignored and the previous value kept.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("STOREFRONT_GATEWAY_URL"); v != "" {
		cfg.GatewayBaseURL = v
	}
	if v := os.Getenv("STOREFRONT_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("STOREFRONT_REFRESH_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.RefreshCheckInterval = parsed
		}
	}
	if v := os.Getenv("STOREFRONT_REFRESH_THRESHOLD"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.RefreshThreshold = parsed
		}
	}
}

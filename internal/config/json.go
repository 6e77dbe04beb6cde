package config

import (
	"encoding/json"
	"os"
	"time"

	"storefront/internal/flagx"
	"storefront/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "10m"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	GatewayBaseURL       string         `json:"gateway_base_url"`
	DatabasePath         string         `json:"database_path"`
	RefreshCheckInterval timex.Duration `json:"refresh_check_interval"`
	RefreshThreshold     timex.Duration `json:"refresh_threshold"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags via flagx.JsonConfigFlags; when no
// path is given, nothing is loaded. Only fields present in the JSON replace
// the current values. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.GatewayBaseURL != "" {
		cfg.GatewayBaseURL = jc.GatewayBaseURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.RefreshCheckInterval.Duration != 0 {
		cfg.RefreshCheckInterval = time.Duration(jc.RefreshCheckInterval.Duration)
	}
	if jc.RefreshThreshold.Duration != 0 {
		cfg.RefreshThreshold = time.Duration(jc.RefreshThreshold.Duration)
	}
}

package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/healthsync/internal/flagx"
	"github.com/dmitrijs2005/healthsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr  string          `json:"server_endpoint_addr"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	DatabasePath        string          `json:"database_path"`
	HTTPAddr            string          `json:"http_addr"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	StatusResetDelay    *timex.Duration `json:"status_reset_delay"`
	AccessToken         string          `json:"access_token"`
	SyncOnStart         *bool           `json:"sync_on_start"`
	RetryBackoffMin     *timex.Duration `json:"retry_backoff_min"`
	RetryBackoffMax     *timex.Duration `json:"retry_backoff_max"`
	LogLevel            string          `json:"log_level"`
	LogFormat           string          `json:"log_format"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config in args. Keys missing from the file leave cfg unchanged.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config, args []string) {
	jsonConfigFile := flagx.ConfigPath(args)
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

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.HTTPAddr, jc.HTTPAddr)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.StatusResetDelay != nil {
		cfg.StatusResetDelay = jc.StatusResetDelay.Duration
	}
	if jc.RetryBackoffMin != nil {
		cfg.RetryBackoffMin = jc.RetryBackoffMin.Duration
	}
	if jc.RetryBackoffMax != nil {
		cfg.RetryBackoffMax = jc.RetryBackoffMax.Duration
	}
	if jc.SyncOnStart != nil {
		cfg.SyncOnStart = *jc.SyncOnStart
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

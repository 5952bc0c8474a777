package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/healthsync/internal/flagx"
	"github.com/dmitrijs2005/healthsync/internal/timex"
)

// JsonConfig is the JSON shape of Config. Durations accept "720h" or
// integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC            string          `json:"endpoint_addr_grpc"`
	Storage                     string          `json:"storage"`
	DatabaseDSN                 string          `json:"database_dsn"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	LogLevel                    string          `json:"log_level"`
	LogFormat                   string          `json:"log_format"`
}

// parseJson overlays cfg with the JSON file named by -c or -config.
// Keys missing from the file leave cfg unchanged. Panics on read or
// unmarshal errors.
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

	for dst, v := range map[*string]string{
		&cfg.EndpointAddrGRPC: jc.EndpointAddrGRPC,
		&cfg.Storage:          jc.Storage,
		&cfg.DatabaseDSN:      jc.DatabaseDSN,
		&cfg.SecretKey:        jc.SecretKey,
		&cfg.LogLevel:         jc.LogLevel,
		&cfg.LogFormat:        jc.LogFormat,
	} {
		if v != "" {
			*dst = v
		}
	}
	if jc.AccessTokenValidityDuration != nil {
		cfg.AccessTokenValidityDuration = jc.AccessTokenValidityDuration.Duration
	}
}

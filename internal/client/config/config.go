package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the healthsync client agent.
//
// Units: every interval and timeout is a time.Duration.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DatabasePath        string
	HTTPAddr            string
	RequestTimeout      time.Duration
	StatusResetDelay    time.Duration
	AccessToken         string
	SyncOnStart         bool
	// RetryBackoffMax of zero disables timer-driven retries.
	RetryBackoffMin time.Duration
	RetryBackoffMax time.Duration
	LogLevel        string
	LogFormat       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "healthsync.db"
	c.HTTPAddr = "127.0.0.1:8088"
	c.RequestTimeout = 10 * time.Second
	c.StatusResetDelay = 3 * time.Second
	c.AccessToken = ""
	c.SyncOnStart = true
	c.RetryBackoffMin = 2 * time.Second
	c.RetryBackoffMax = 2 * time.Minute
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}

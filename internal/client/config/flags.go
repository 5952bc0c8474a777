package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/flagx"
)

var knownFlags = []string{
	"-a", "-i", "-d", "-http", "-t",
	"-request-timeout", "-status-reset", "-sync-on-start",
	"-retry-min", "-retry-max", "-l", "-log-format",
}

// parseFlags populates Config fields from command-line flags. Only the flags
// listed in knownFlags are considered, so other loaders can share args.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database file")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "local HTTP API address")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token for the remote service")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "timeout of a single remote call")
	fs.DurationVar(&cfg.StatusResetDelay, "status-reset", cfg.StatusResetDelay, "delay before success/error revert to idle")
	fs.BoolVar(&cfg.SyncOnStart, "sync-on-start", cfg.SyncOnStart, "drain the queue at start when online")
	fs.DurationVar(&cfg.RetryBackoffMin, "retry-min", cfg.RetryBackoffMin, "first retry delay")
	fs.DurationVar(&cfg.RetryBackoffMax, "retry-max", cfg.RetryBackoffMax, "maximum retry delay, 0 disables retries")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (json or text)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		}
	})
}

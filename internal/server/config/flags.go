package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/flagx"
)

var knownFlags = []string{"-a", "-storage", "-d", "-s", "-t", "-issue-token", "-l", "-log-format"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            gRPC bind address (e.g., ":50051")
//	-storage string      memory or postgres
//	-d string            PostgreSQL DSN
//	-s string            JWT HMAC secret key
//	-t int               access token validity, hours
//	-issue-token string  print a token for this worker id and exit
//	-l string            log level
//	-log-format string   json or text
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage backend (memory or postgres)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	validity := fs.Int("t", int(cfg.AccessTokenValidityDuration.Hours()), "access token validity (in hours)")
	fs.StringVar(&cfg.IssueTokenFor, "issue-token", cfg.IssueTokenFor, "issue an access token for a worker id and exit")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (json or text)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.AccessTokenValidityDuration = time.Duration(*validity) * time.Hour
		}
	})
}

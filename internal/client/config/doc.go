// Package config loads runtime configuration for the healthsync client agent.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string               address:port of the remote gRPC endpoint
//	-i int                  online status check interval (seconds)
//	-d string               path of the local SQLite database
//	-http string            address the local HTTP API listens on
//	-t string               access token sent to the remote service
//	-request-timeout dur    bound on every remote call
//	-status-reset dur       how long success/error stay visible
//	-sync-on-start bool     drain the queue at start when online
//	-retry-min dur          first retry delay after retriable failures
//	-retry-max dur          retry delay cap; 0 disables timed retries
//	-l string               log level (debug, info, warn, error)
//	-log-format string      json or text
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds. Absent keys keep earlier values:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "database_path": "/var/lib/healthsync/healthsync.db",
//	  "http_addr": "127.0.0.1:8088",
//	  "request_timeout": "10s",
//	  "status_reset_delay": "3s",
//	  "access_token": "eyJ...",
//	  "sync_on_start": true,
//	  "retry_backoff_min": "2s",
//	  "retry_backoff_max": "2m",
//	  "log_level": "info",
//	  "log_format": "json"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config

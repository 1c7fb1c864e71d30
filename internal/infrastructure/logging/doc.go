// Package logging provides structured logging for Whip Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across both the broker and the agent.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "whipd", "1.0.0")
//	logger.Info("starting broker", "port", 60606)
//	logger.Error("failed to bind", "error", err)
//
// # Security
//
// Never log bearer tokens or credentials. When a token must be correlated
// across log lines, log a short prefix only.
package logging

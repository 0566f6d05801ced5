// Package logging provides structured logging for jughead-core.
//
// It wraps log/slog so every component logs the same way.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for the interactive console
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("color sent", "ball", 1, "address", "192.168.1.50")
//	logger.Error("send failed", "error", err)
package logging

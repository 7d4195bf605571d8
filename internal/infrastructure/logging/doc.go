// Package logging provides structured logging for the ScopeSync service.
//
// This package wraps Go's standard log/slog package. Every entry carries
// service=scopesync-core and the build version.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("registry").Info("parameter definitions loaded", "count", 24)
//
// Library packages do not import this package. They declare a small Logger
// interface that *Logger satisfies.
package logging

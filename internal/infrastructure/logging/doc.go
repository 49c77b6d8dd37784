// Package logging provides structured logging for the MAX! Cube bridge.
//
// It wraps log/slog so every component logs the same way:
//
//   - JSON output for production, text for development
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Gateway polling logs "updating" and "skipping update" at debug, so run at
// debug level to watch the 60 second gate in action.
//
// Never log secrets such as the MQTT password or InfluxDB token.
package logging

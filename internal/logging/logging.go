// Package logging configures the process-wide slog logger: JSON or text
// handler selected by an env var, level threshold resolved from a
// RUST_LOG-style string.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures and installs the global slog logger for service, at the
// given level string ("trace", "debug", "info", "warn", "error").
func Init(service, level string) *slog.Logger {
	jsonMode := isTruthy(os.Getenv("NEXUS_JSON_LOG"))
	opts := &slog.HandlerOptions{AddSource: false, Level: parseLevel(level)}

	var handler slog.Handler
	if jsonMode {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}

func isTruthy(v string) bool {
	v = strings.ToLower(v)
	return v == "1" || v == "true" || v == "json"
}

// parseLevel maps a five-level scale onto slog's four; "trace" collapses
// onto slog.LevelDebug since slog has no lower level.
func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

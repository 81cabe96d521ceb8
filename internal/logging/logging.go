// Package logging builds the JSON logger shared by the server and the CLI.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a JSON logger writing to w at the named level. Unknown
// levels fall back to info; "off" discards everything.
func New(w io.Writer, level string) *slog.Logger {
	if IsOff(level) {
		w = io.Discard
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsOff reports whether level disables logging.
func IsOff(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "off", "none":
		return true
	}
	return false
}

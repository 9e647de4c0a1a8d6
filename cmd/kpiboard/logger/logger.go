// Package logger builds the kpiboard slog.Logger from its Config.
//
// Text and JSON formats are supported at debug, info, warn and error levels.
// When the terminal view owns stdout, logs are written to stderr so they do
// not interleave with the dashboard frames.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/HatiCode/kpiboard/cmd/kpiboard/config"
)

func New(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.View == "text" {
		out = os.Stderr
	}
	return NewWithWriter(cfg, out)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

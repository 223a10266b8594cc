// Package logging builds the process-wide slog logger from LogConfig.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/use-agent/menugrab/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(s string) slog.Level {
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

// New builds a logger writing to console and, when cfg.File is set, to a
// rotating file as well. The returned close func flushes the file.
func New(cfg config.LogConfig, console io.Writer) (*slog.Logger, func() error) {
	w := console
	closeFn := func() error { return nil }

	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(console, file)
		closeFn = file.Close
	}

	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "color":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			// escape codes would end up in the log file
			NoColor: cfg.File != "",
		})
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler), closeFn
}

// Setup builds the logger with New and installs it as the slog default.
func Setup(cfg config.LogConfig, console io.Writer) func() error {
	logger, closeFn := New(cfg, console)
	slog.SetDefault(logger)
	return closeFn
}

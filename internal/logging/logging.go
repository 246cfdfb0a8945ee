// Package logging настраивает структурированный логгер slog.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New создает логгер с заданным уровнем и форматом (json, text) и делает его логгером по умолчанию.
func New(level, format string) (*slog.Logger, error) {
	return newWithWriter(os.Stdout, level, format)
}

func newWithWriter(w io.Writer, level, format string) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info", "":
		slogLevel = slog.LevelInfo
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	var logger *slog.Logger
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "":
		logger = slog.New(slog.NewJSONHandler(w, opts))
	case "text", "console":
		logger = slog.New(slog.NewTextHandler(w, opts))
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	slog.SetDefault(logger)
	return logger, nil
}

// Package logger installs the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alkime/docucast/internal/config"
)

// SetupLogger configures structured JSON logging for the service.
func SetupLogger(cfg *config.Server) *slog.Logger {
	logLevel := ParseLevel(cfg.LogLevel)
	if cfg.Env == "development" {
		logLevel = slog.LevelDebug
	}

	return install(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// SetupFileLogger sends text logs to path, since the terminal belongs to the
// TUI. The returned closer flushes the file.
func SetupFileLogger(path, level string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	//nolint:gosec // path comes from the user's own configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	logger := install(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))

	return logger, f, nil
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func install(h slog.Handler) *slog.Logger {
	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

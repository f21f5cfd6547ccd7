package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger from cfg: JSON by default, the pretty handler when
// GUESTLIST_LOG_FORMAT=pretty. With GUESTLIST_LOG_FILE set, records are also written to a
// rotating file. The returned closer releases the file. An unwritable log file is an error.
func NewLogger(cfg Config) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(cfg.LogLevel),
		AddSource: true,
	}

	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if path := strings.TrimSpace(cfg.LogFile); path != "" {
		if err := checkLogFile(path); err != nil {
			return nil, nil, err
		}
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	var h slog.Handler
	if cfg.LogFormat == "pretty" {
		// Escapes would end up in the rotated file too.
		color := cfg.LogFile == "" && os.Getenv("NO_COLOR") == ""
		h = newPrettyHandler(out, opts, color)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}

	log := slog.New(h)
	slog.SetDefault(log)
	return log, closer, nil
}

// checkLogFile surfaces permission and path errors at startup; lumberjack opens lazily.
func checkLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	return f.Close()
}

func parseLogLevel(level string) slog.Level {
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

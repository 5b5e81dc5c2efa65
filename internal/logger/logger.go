// Package logger provides structured logging using Go 1.21's log/slog.
// Commands log JSON to stdout and, when a storage directory is
// configured, duplicate the stream into storage/logs/<service>.txt.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Init creates a structured logger for the given service and sets it as
// the slog default. storageDir "" disables the file sink.
func Init(service, storageDir string, level slog.Level) *slog.Logger {
	var w io.Writer = os.Stdout
	if storageDir != "" {
		if f, err := openLogFile(storageDir, service); err == nil {
			w = io.MultiWriter(os.Stdout, f)
		} else {
			slog.Warn("log file disabled", "error", err)
		}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler).With(
		slog.String("service", service),
	)
	slog.SetDefault(logger)
	return logger
}

func openLogFile(storageDir, service string) (*os.File, error) {
	dir := filepath.Join(storageDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, service+".txt"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

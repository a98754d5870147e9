package logging

import (
	"log/slog"
	"os"
)

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(slog.New(stdoutHandler()))
}

// WithDB fans the default logger out to stdout and the PostgreSQL sink.
func WithDB(sink *PGHandler) {
	slog.SetDefault(slog.New(NewMultiHandler(stdoutHandler(), sink)))
}

func stdoutHandler() slog.Handler {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
}

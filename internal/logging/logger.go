package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewStdoutHandler returns the JSON handler every environment logs through.
// Development logs at DEBUG; everything else at INFO.
func NewStdoutHandler(env string) slog.Handler {
	level := slog.LevelInfo
	if strings.EqualFold(env, "development") {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
}

// Setup initializes the global slog logger with JSON output to stdout.
func Setup(env string) {
	slog.SetDefault(slog.New(NewStdoutHandler(env)))
}

// Attach tees ERROR+ records into PostgreSQL alongside stdout. The caller
// stops pg on shutdown.
func Attach(env string, pg *PGHandler) {
	slog.SetDefault(slog.New(NewFanout(
		Sink{Handler: NewStdoutHandler(env)},
		Sink{Handler: pg, Floor: slog.LevelError},
	)))
}

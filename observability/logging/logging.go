package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// Setup installs a JSON slog handler as the process default and returns a
// logger tagged with the service name and environment. Non-production
// environments log at debug level.
func Setup(service, env string) *slog.Logger {
	env = strings.TrimSpace(env)
	level := slog.LevelDebug
	if env == "production" || env == "prod" {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})

	logger := slog.New(handler).With("service", strings.TrimSpace(service))
	if env != "" {
		logger = logger.With("env", env)
	}
	slog.SetDefault(logger)

	// Route the stdlib logger through the same handler so third-party code
	// logging via package log stays structured.
	bridge := slog.NewLogLogger(handler, slog.LevelInfo)
	bridge.SetFlags(0)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)

	return logger
}

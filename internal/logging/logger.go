// Package logging builds the application logger
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a structured logger. The dev environment gets colorized
// console output, everything else JSON lines.
func New(level slog.Level, appEnv string, appName string) *slog.Logger {
	if appEnv == "" || appEnv == "dev" {
		h := tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With("app", appName, "env", appEnv)
}

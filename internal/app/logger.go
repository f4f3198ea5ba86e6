package app

import (
	"log/slog"
	"os"
)

// serviceName tags every log line so aggregated output from the API and the
// worker can be told apart from other hospital services.
const serviceName = "meridian-ledger"

// NewLogger returns a configured slog.Logger based on configuration. JSON
// output is meant for log shipping and carries the service and environment
// attributes; the pretty format stays plain for local development.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With(
			slog.String("service", serviceName),
			slog.String("env", cfg.AppEnv),
		)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// Package logging constructs the structured logger the engine's
// components share, in place of a package-level global.
package logging

import "go.uber.org/zap"

// New builds a zap.Logger for the given level ("debug", "info", "warn",
// "error"). "debug" gets a human-readable development console encoder;
// everything else gets the production JSON encoder.
func New(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	zapLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = zapLevel
	return cfg.Build()
}

// Package logging builds the structured logger used by covsat.
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels, to be used with logr.Logger.V.
const (
	DEBUG = 1
	TRACE = 2
)

// New returns a logger writing to stderr.
// verbosity is the highest V-level that gets logged: 0 only logs Info and Error messages,
// DEBUG adds model statistics and solver progress, TRACE adds per-constraint details.
// If json is false, a human-readable console encoding is used.
func New(verbosity int, json bool) (logr.Logger, error) {
	if verbosity < 0 {
		return logr.Discard(), fmt.Errorf("invalid verbosity %d", verbosity)
	}
	cfg := zap.NewProductionConfig()
	if !json {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	// zapr maps V(n) to zap level -n.
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	z, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("could not build logger: %w", err)
	}
	return zapr.NewLogger(z), nil
}

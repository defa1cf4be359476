// Package logger builds the zap loggers used across partsedge.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// New returns a logger at level ("debug", "info", "warn", "error"). format is
// "json", "console" or "auto"; auto picks console output when stdout is a
// terminal.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	console := false
	switch strings.ToLower(format) {
	case "console":
		console = true
	case "json":
	case "", "auto":
		console = term.IsTerminal(int(os.Stdout.Fd()))
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	var config zap.Config
	if console {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stdout"}

	return config.Build()
}

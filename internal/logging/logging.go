package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Verbose switches to the
// development encoder with debug level enabled.
func NewLogger(verbose bool) *zap.Logger {
	var config zap.Config
	if verbose {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := config.Build()
	if err != nil {
		// Fallback to a no-op logger if configuration fails
		return zap.NewNop()
	}
	return logger
}

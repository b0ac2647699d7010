// Package diag builds the zap logger the pipeline reports its own problems
// through: configuration mismatches, dropped events, sink failures and
// lifecycle misuse.
package diag

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds configuration for the diagnostic logger
type Config struct {
	// Output is where diagnostics are written (default: os.Stderr)
	Output io.Writer
	// Level is the minimum diagnostic level (default: info)
	Level zapcore.Level
	// Sample limits repeated messages per second: the first SampleFirst
	// entries with the same message are kept, then every SampleThereafter-th.
	// Zero values disable sampling.
	SampleFirst      int
	SampleThereafter int
}

// DefaultConfig returns the configuration used by New
func DefaultConfig() Config {
	return Config{
		Output:           os.Stderr,
		Level:            zapcore.InfoLevel,
		SampleFirst:      10,
		SampleThereafter: 100,
	}
}

// New creates the default diagnostic logger.
func New() *zap.Logger {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a diagnostic logger with a console encoder.
func NewWithConfig(cfg Config) *zap.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encCfg)

	var c zapcore.Core = zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(cfg.Output)), zap.NewAtomicLevelAt(cfg.Level))
	if cfg.SampleFirst > 0 && cfg.SampleThereafter > 0 {
		c = zapcore.NewSamplerWithOptions(c, time.Second, cfg.SampleFirst, cfg.SampleThereafter)
	}
	return zap.New(c).Named("pipelog")
}

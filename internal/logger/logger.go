// Package logger provides a standardized zap logger setup for the
// buffer pool, mirroring the logging shape used across the rest of
// the retrieved pack (config struct in, *zap.Logger out).
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the minimal knobs the buffer pool needs from a logger.
// It is not a general application logging config (that is a boot/CLI
// concern, out of scope here).
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Development enables human-friendly console output instead of JSON.
	Development bool
}

// New builds a *zap.Logger for the given Config.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Development {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level)
	return zap.New(core).WithOptions(zap.Fields(zap.String("component", "bufferpool"))), nil
}

// Nop returns a logger that discards everything, for callers (and
// tests) that don't want log output.
func Nop() *zap.Logger {
	return zap.NewNop()
}

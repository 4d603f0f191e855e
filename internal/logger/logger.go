package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger

	// level is shared by every logger derived from the process logger
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the process logger. Output goes to stderr so command output
// on stdout stays machine readable.
func Init(lvl, format string) error {
	parsed, err := parseLevel(lvl)
	if err != nil {
		return err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	switch format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	case "text":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}

	level.SetLevel(parsed)
	built := zap.New(zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level), opts...)

	mu.Lock()
	logger = built
	mu.Unlock()
	return nil
}

// SetLevel changes the level of the process logger and all of its children
func SetLevel(lvl string) error {
	parsed, err := parseLevel(lvl)
	if err != nil {
		return err
	}
	level.SetLevel(parsed)
	return nil
}

// parseLevel accepts the levels the config file allows
func parseLevel(lvl string) (zapcore.Level, error) {
	switch lvl {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", lvl)
	}
}

// Sync flushes any buffered log entries
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return nil
	}
	return logger.Sync()
}

// GetZapLogger returns the process logger, or a no-op logger before Init
func GetZapLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Named returns a child logger for a component
func Named(component string) *zap.Logger {
	return GetZapLogger().Named(component)
}

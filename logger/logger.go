// Package logger holds the process-wide zap logger, optionally teeing error
// level entries to Sentry.
package logger

import (
	"fmt"
	"sync"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	log          = zap.NewNop()
	sentryClient *sentry.Client
)

// Config holds logger configuration.
type Config struct {
	Debug bool
	// Level overrides the level implied by Debug ("debug", "info", "warn", "error").
	Level        string
	SentryDSN    string
	SentryClient *sentry.Client
	Tags         map[string]string
}

// Initialize replaces the global logger according to cfg.
func Initialize(cfg Config) error {
	var zapConfig zap.Config
	if cfg.Debug {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("logger: parse level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	base, err := zapConfig.Build()
	if err != nil {
		return err
	}

	client := cfg.SentryClient
	if client == nil && cfg.SentryDSN != "" {
		client, err = sentry.NewClient(sentry.ClientOptions{
			Dsn:   cfg.SentryDSN,
			Debug: cfg.Debug,
		})
		if err != nil {
			return err
		}
	}

	if client != nil {
		core, err := zapsentry.NewCore(zapsentry.Configuration{
			Level:             zapcore.ErrorLevel,
			EnableBreadcrumbs: true,
			BreadcrumbLevel:   zapcore.InfoLevel,
			Tags:              cfg.Tags,
		}, zapsentry.NewSentryClientFromClient(client))
		if err != nil {
			return err
		}
		base = zapsentry.AttachCoreToLogger(core, base)
	}

	mu.Lock()
	log = base
	sentryClient = client
	mu.Unlock()
	return nil
}

// SetDefault installs l as the global logger. Intended for tests.
func SetDefault(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	log = l
	mu.Unlock()
}

// Flush syncs the logger and flushes buffered Sentry events.
func Flush(timeout time.Duration) {
	mu.RLock()
	l, client := log, sentryClient
	mu.RUnlock()
	_ = l.Sync()
	if client != nil {
		client.Flush(timeout)
	}
}

// Default returns the global logger.
func Default() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Named returns a child of the global logger.
func Named(name string) *zap.Logger {
	return Default().Named(name)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	Default().Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	Default().Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	Default().Warn(msg, fields...)
}

// Error logs an error message
func Error(err error, fields ...zap.Field) {
	if err != nil {
		Default().Error(err.Error(), fields...)
	} else {
		Default().Error("error occurred", fields...)
	}
}

package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the process-wide logging shape.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // json|console
}

// NewZapLogger builds a zap.Logger from cfg, defaulting to info/json —
// the shape every long-running ralph process (scheduler, ops HTTP
// surface) runs with in production.
func NewZapLogger(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, err
		}
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// Logr adapts a zap.Logger to the logr.Logger interface. The CLI wiring
// in cmd/ralph is its only caller.
func Logr(z *zap.Logger) logr.Logger {
	return zapr.NewLogger(z)
}

// WithFields flattens a Fields map into logr key/value pairs.
func WithFields(log logr.Logger, f Fields) logr.Logger {
	kv := make([]interface{}, 0, len(f)*2)
	for k, v := range f {
		kv = append(kv, k, v)
	}
	return log.WithValues(kv...)
}

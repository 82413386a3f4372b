// Package logging provides the small structured-logging interface the core
// packages accept at construction, implemented over go.uber.org/zap the way
// the teacher's logging package wraps zap, trimmed to what a library (not a
// server) needs: no net appender, no named-logger registry, no proto
// conversions.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface the map, integrator, and their
// collaborators depend on.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger that prefixes its name with name, for
	// attributing log lines to a specific block or worker.
	Sublogger(name string) Logger
}

type zapLogger struct {
	name string
	sug  *zap.SugaredLogger
}

// NewProductionLogger returns a Logger that writes Info+ logs to stdout in
// a console encoding, matching the teacher's production default.
func NewProductionLogger(name string) Logger {
	cfg := defaultConfig(zap.InfoLevel)
	return build(name, cfg)
}

// NewDevelopmentLogger returns a Logger that writes Debug+ logs to stdout.
func NewDevelopmentLogger(name string) Logger {
	cfg := defaultConfig(zap.DebugLevel)
	return build(name, cfg)
}

// NewNopLogger returns a Logger that discards everything, used as the
// default when a core constructor is given a nil logger.
func NewNopLogger() Logger {
	return &zapLogger{name: "", sug: zap.NewNop().Sugar()}
}

func defaultConfig(level zapcore.Level) zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

func build(name string, cfg zap.Config) Logger {
	base, err := cfg.Build()
	if err != nil {
		// Building a static, hard-coded zap config should never fail; if
		// it does, fall back to a no-op logger rather than taking the
		// caller down with us.
		return NewNopLogger()
	}
	return &zapLogger{name: name, sug: base.Sugar().Named(name)}
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.sug.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.sug.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.sug.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.sug.Errorw(msg, kv...) }

func (l *zapLogger) Sublogger(name string) Logger {
	newName := name
	if l.name != "" {
		newName = l.name + "." + name
	}
	return &zapLogger{name: newName, sug: l.sug.Desugar().Sugar().Named(name)}
}

// OrNop returns l if non-nil, otherwise a no-op logger. Core constructors
// use this so a nil Logger argument is safe to pass.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

// Package logging provides the structured logger used across the
// engine. It keeps the Logger interface shape and global-logger
// convenience functions the framework has always exposed, backed by
// go.uber.org/zap instead of the standard library's log.Logger.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message, ordered from
// least to most severe.
type LogLevel int

const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String renders the LogLevel the way configuration files and
// environment variables spell it.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "OFF"
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so LogLevel can be
// bound from YAML/env configuration.
func (l *LogLevel) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "OFF":
		*l = LogLevelOff
	case "ERROR":
		*l = LogLevelError
	case "WARN":
		*l = LogLevelWarn
	case "INFO":
		*l = LogLevelInfo
	case "DEBUG":
		*l = LogLevelDebug
	default:
		return fmt.Errorf("invalid log level: %s", string(text))
	}
	return nil
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelOff:
		return zapcore.FatalLevel + 1
	case LogLevelError:
		return zapcore.ErrorLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the structured logging interface used throughout the
// engine. Key-value pairs follow zap's SugaredLogger convention.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	SetLevel(level LogLevel)
	With(keysAndValues ...interface{}) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
	atom  zap.AtomicLevel
}

// Format selects the encoder used for new loggers, driven by
// FMF_LOG_FORMAT.
type Format string

const (
	FormatJSON  Format = "json"
	FormatHuman Format = "human"
)

// FormatFromEnv reads FMF_LOG_FORMAT, defaulting to human-readable
// console output.
func FormatFromEnv() Format {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("FMF_LOG_FORMAT"))) {
	case "json":
		return FormatJSON
	default:
		return FormatHuman
	}
}

// New builds a Logger at the given level using the given format.
func New(level LogLevel, format Format) Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if format == FormatJSON {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "ts"
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), atom)
	base := zap.New(core)
	return &zapLogger{sugar: base.Sugar(), atom: atom}
}

func (l *zapLogger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

func (l *zapLogger) SetLevel(level LogLevel) { l.atom.SetLevel(level.zapLevel()) }

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(kv...), atom: l.atom}
}

// Global is the package-level logger used by convenience functions
// below, mirroring the framework's historical GlobalLogger pattern.
var Global Logger = New(LogLevelInfo, FormatFromEnv())

// SetGlobalLevel adjusts Global's verbosity.
func SetGlobalLevel(level LogLevel) { Global.SetLevel(level) }

func Debug(msg string, kv ...interface{}) { Global.Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { Global.Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { Global.Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { Global.Error(msg, kv...) }

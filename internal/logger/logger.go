// Package logger wraps zap with a console encoder and a shared sugared
// logger so services can log without threading a logger through every
// constructor.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = New(zapcore.InfoLevel)
)

// New builds a sugared console logger at the given level.
func New(level zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "ts",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), level)
	return zap.New(core, options...).Sugar()
}

// SetLevel replaces the global logger with one at the parsed level.
// Unknown strings leave the logger at info.
func SetLevel(s string) {
	lvl := zapcore.InfoLevel
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}
	mu.Lock()
	global = New(lvl)
	mu.Unlock()
}

// L returns the shared sugared logger.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Debugf(format string, args ...interface{}) { L().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { L().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { L().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { L().Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { L().Fatalf(format, args...) }

// Sync flushes buffered log entries. Safe to call on shutdown.
func Sync() { _ = L().Sync() }

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/wasm-windowing/broker"
	"github.com/wippyai/wasm-windowing/eventloop"
	"github.com/wippyai/wasm-windowing/host"
	"github.com/wippyai/wasm-windowing/internal/config"
	"github.com/wippyai/wasm-windowing/native/desktop"
	"github.com/wippyai/wasm-windowing/windowing"
)

// newLogger builds the process logger. Without an explicit encoding it is
// console on a terminal and JSON otherwise. The inspector owns the terminal,
// so with inspect set logs go only to log.file, or nowhere.
func newLogger(cfg config.LogConfig, inspect bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
		if cfg.File == "" && term.IsTerminal(int(os.Stderr.Fd())) {
			encoding = "console"
		}
	}

	var outputs []string
	switch {
	case cfg.File != "":
		outputs = []string{cfg.File}
	case inspect:
		return zap.NewNop(), nil
	default:
		outputs = []string{"stderr"}
	}

	zc := zap.NewProductionConfig()
	if encoding == "console" {
		zc = zap.NewDevelopmentConfig()
		if cfg.File == "" {
			zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = encoding
	zc.OutputPaths = outputs
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = level > zapcore.DebugLevel

	return zc.Build(zap.Fields(zap.Int("pid", os.Getpid())))
}

// setLoggers hands l to every package that logs.
func setLoggers(l *zap.Logger) {
	broker.SetLogger(l.Named("broker"))
	windowing.SetLogger(l.Named("windowing"))
	host.SetLogger(l.Named("host"))
	eventloop.SetLogger(l.Named("loop"))
	desktop.SetLogger(l.Named("desktop"))
}

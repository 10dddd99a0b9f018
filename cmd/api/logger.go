package main

import (
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"

	"github.com/Ramsey-B/sorrel/config"
)

// newLogger builds the service logger. Structured entries flow through a
// zap transport; pretty logs switch to the development encoder.
func newLogger(cfg config.Config) (ectologger.Logger, func(), error) {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, err
	}
	zapLogger = zapLogger.Named(cfg.AppName)

	logger := newLoggerBridge(zapLogger)

	flush := func() {
		_ = zapLogger.Sync()
	}
	return logger, flush, nil
}

// newLoggerBridge wires ectologger onto a zap backend, preserving each
// entry's own level.
func newLoggerBridge(zapLogger *zap.Logger) ectologger.Logger {
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

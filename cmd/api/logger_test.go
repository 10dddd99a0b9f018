package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerBridge_PreservesLevels(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := newLoggerBridge(zap.New(core))

	logger.Debug("debug entry")
	logger.Info("info entry")
	logger.Warn("warn entry")
	logger.Error("error entry")

	entries := observed.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "debug entry", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "error entry", entries[3].Message)
}

func TestNewLoggerBridge_CarriesErrorAndFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := newLoggerBridge(zap.New(core))

	logger.WithError(errors.New("connection refused")).Error("write failed")
	logger.WithFields(map[string]any{"case_id": "case-1"}).Warn("slow query")

	entries := observed.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "connection refused", entries[0].ContextMap()["error"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "case-1", entries[1].ContextMap()["case_id"])
}

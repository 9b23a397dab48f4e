package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true, false)
	if err != nil {
		t.Fatalf("New(true, false) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug logs to be disabled")
	}
	logger.Info("development logger ready")
}

func TestNewProductionDebugLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false, true)
	if err != nil {
		t.Fatalf("New(false, true) error = %v", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug logs to be enabled")
	}
	logger.Debug("production logger ready")
}

package main

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestApplyLogLevelFromConfig(t *testing.T) {
	verbose = false
	logLevel.SetLevel(zapcore.InfoLevel)

	if err := applyLogLevel("debug"); err != nil {
		t.Fatalf("applyLogLevel: %v", err)
	}
	if got := logLevel.Level(); got != zapcore.DebugLevel {
		t.Errorf("expected debug level from config, got %v", got)
	}
}

func TestApplyLogLevelVerboseWins(t *testing.T) {
	verbose = true
	defer func() { verbose = false }()
	logLevel.SetLevel(zapcore.DebugLevel)

	if err := applyLogLevel("error"); err != nil {
		t.Fatalf("applyLogLevel: %v", err)
	}
	if got := logLevel.Level(); got != zapcore.DebugLevel {
		t.Errorf("--verbose must not be overridden by config, got %v", got)
	}
}

func TestApplyLogLevelEmptyKeepsDefault(t *testing.T) {
	verbose = false
	logLevel.SetLevel(zapcore.InfoLevel)

	if err := applyLogLevel(""); err != nil {
		t.Fatalf("applyLogLevel: %v", err)
	}
	if got := logLevel.Level(); got != zapcore.InfoLevel {
		t.Errorf("empty level must keep the default, got %v", got)
	}
}

func TestApplyLogLevelRejectsUnknown(t *testing.T) {
	verbose = false
	logLevel.SetLevel(zapcore.InfoLevel)

	if err := applyLogLevel("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
	if got := logLevel.Level(); got != zapcore.InfoLevel {
		t.Errorf("failed parse must not change the level, got %v", got)
	}
}

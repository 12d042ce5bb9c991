package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"convoqa/internal/logger"
)

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, err := logger.New("warn", path)
	gt.NoError(t, err)

	l.Info("info message")
	l.Warn("warn message")
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.S(t, string(raw)).Contains("warn message")
	gt.S(t, string(raw)).NotContains("info message")
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := logger.New("loud", path)
	gt.NoError(t, err)

	l.Debug("debug message")
	l.Info("info message")
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.S(t, string(raw)).Contains("info message")
	gt.S(t, string(raw)).NotContains("debug message")
}

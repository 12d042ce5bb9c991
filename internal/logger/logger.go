package logger

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON zap logger at the given level. An empty path logs to
// stderr; otherwise entries are appended to the file, which keeps the
// terminal free while the TUI is running.
func New(level, path string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.CallerKey = "caller"
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create log directory", goerr.V("path", path))
		}
		config.OutputPaths = []string{path}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build logger", goerr.V("level", level))
	}
	return logger, nil
}

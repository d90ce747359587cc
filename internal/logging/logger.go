package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/RichardoC/support-widget/internal/config"
)

// New builds the production zap logger. Interactive front-ends pass toFile so
// log lines land in cfg.File instead of the terminal they draw on.
func New(cfg config.LogConfig, toFile bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.Level)
	if toFile && cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return logger, nil
}

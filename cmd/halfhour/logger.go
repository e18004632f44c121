package main

import (
	"github.com/pbudner/halfhour/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger logs to stderr and, when configured, appends every line to the
// progress log as JSON.
func newLogger(cfg config.Logger) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.Level)
	zapCfg.Encoding = "console"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapCfg.Sampling = nil
	zapCfg.OutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	if cfg.ProgressLog == "" {
		return logger, nil
	}

	sink, _, err := zap.Open(cfg.ProgressLog)
	if err != nil {
		return nil, err
	}

	fileEncoder := zap.NewProductionEncoderConfig()
	fileEncoder.EncodeTime = zapcore.ISO8601TimeEncoder
	progress := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), sink, zapCfg.Level)

	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, progress)
	})), nil
}

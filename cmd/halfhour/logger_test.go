package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pbudner/halfhour/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerWritesProgressLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.log")
	logger, err := newLogger(config.Logger{Level: zapcore.InfoLevel, ProgressLog: path})
	require.NoError(t, err)

	logger.Sugar().Infow("processed file", "file", "TOA5_a.dat", "outcome", "created")
	logger.Sugar().Debugw("hidden below info")
	_ = logger.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"file":"TOA5_a.dat"`)
	require.NotContains(t, string(b), "hidden below info")
}

func TestRootCommandRequiresConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"split", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, cmd.Execute())
}

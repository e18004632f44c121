package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbudner/halfhour/blocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewConfigFromStr(t *testing.T) {
	rawConfig := `---
logger:
  level: debug
  progress-log: /var/log/halfhour/progress.log
input-directory: /data/speuld/TOA5
output-directory: /data/speuld/halfhour
exclude:
  - '103320000'
site-identifier: speuld
frequency: 10
malformed-fields:
  policy: placeholder
  placeholder: '-9999'
database:
  path: /var/lib/halfhour
listener: 0.0.0.0:4711
archive:
  source: /data/speuld/raw/old
  destination: /data/speuld/TOA5
coverage:
  from: '2010-01-01'
  to: '2018-12-31'
kafka:
  brokers:
    - localhost:9092
  topic: halfhour
  write-timeout: 5s`
	cfg, err := NewConfigFromStr([]byte(rawConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateInput())
	require.NoError(t, cfg.ValidateArchive())

	require.Equal(t, zapcore.DebugLevel, cfg.Logger.Level)
	require.Equal(t, "/var/log/halfhour/progress.log", cfg.Logger.ProgressLog)
	require.Equal(t, []string{"103320000"}, cfg.Exclude)
	require.Equal(t, "speuld", cfg.SiteIdentifier)
	require.Equal(t, 10, cfg.Frequency)
	require.Equal(t, blocks.PolicyPlaceholder, cfg.MalformedFields.Policy)
	require.Equal(t, "-9999", cfg.MalformedFields.Placeholder)
	require.Equal(t, "/var/lib/halfhour", cfg.DatabasePath())
	require.Equal(t, "0.0.0.0:4711", cfg.Listener)
	require.True(t, cfg.Kafka.Enabled())
	require.Equal(t, 5*time.Second, cfg.Kafka.WriteTimeout)

	// untouched keys keep their defaults
	require.Equal(t, ".dat", cfg.FileExtension)
	require.Equal(t, 30, cfg.BlockMinutes)
	require.Equal(t, 4, cfg.HeaderLines)
	require.Equal(t, "NAN", cfg.NaNToken)
	require.Equal(t, ".zip", cfg.Archive.Extension)

	from, to, err := cfg.CoverageRange()
	require.NoError(t, err)
	require.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC), to)
}

func TestDefaults(t *testing.T) {
	cfg, err := NewConfigFromStr([]byte("output-directory: out\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Error(t, cfg.ValidateInput())
	require.Error(t, cfg.ValidateArchive())
	require.Equal(t, zapcore.InfoLevel, cfg.Logger.Level)
	require.Equal(t, 20, cfg.Frequency)
	require.Equal(t, filepath.Join("out", ".catalogue"), cfg.DatabasePath())
	require.False(t, cfg.Kafka.Enabled())

	cfg.Database.InMemory = true
	require.Equal(t, "", cfg.DatabasePath())

	from, to, err := cfg.CoverageRange()
	require.NoError(t, err)
	require.True(t, from.IsZero())
	require.True(t, to.IsZero())

	cfg, err = NewConfigFromStr(nil)
	require.NoError(t, err)
	require.Error(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	for name, raw := range map[string]string{
		"block minutes": "output-directory: out\nblock-minutes: 7\n",
		"frequency":     "output-directory: out\nfrequency: 0\n",
		"policy":        "output-directory: out\nmalformed-fields:\n  policy: ignore\n",
		"site":          "output-directory: out\nsite-identifier: ''\n",
		"header lines":  "output-directory: out\nheader-lines: -1\n",
		"timezone":      "output-directory: out\ntimezone: Mars/Olympus\n",
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := NewConfigFromStr([]byte(raw))
			require.NoError(t, err)
			require.Error(t, cfg.Validate())
		})
	}

	_, err := NewConfigFromStr([]byte("output-dir: out\n"))
	require.Error(t, err)

	cfg, err := NewConfigFromStr([]byte("coverage:\n  from: 01/01/2010\n"))
	require.NoError(t, err)
	_, _, err = cfg.CoverageRange()
	require.Error(t, err)
}

func TestNewConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := NewConfig(dir)
	require.Error(t, err)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output-directory: out\nsite-identifier: speuld\n"), 0644))
	cfg, err := NewConfig(path)
	require.NoError(t, err)
	require.Equal(t, "speuld", cfg.SiteIdentifier)
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/pbudner/halfhour/config"
	"github.com/stretchr/testify/require"
)

const header = "\"TOA5\",\"speuld\"\n\"TIMESTAMP\",\"RECORD\"\n\"TS\",\"RN\"\n\"\",\"\"\n"

func writeRawFile(t *testing.T, dir, name string, start time.Time, count int) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(header)
	for i := 0; i < count; i++ {
		ts := start.Add(time.Duration(i) * 500 * time.Millisecond)
		fmt.Fprintf(&sb, "\"%s\",%d,1,2,3,4,5,6,%d\n", ts.Format("2006-01-02 15:04:05.99"), i, i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sb.String()), 0644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	raw := fmt.Sprintf(`
input-directory: %s
output-directory: %s
exclude: ['corrupt']
site-identifier: speuld
frequency: 2
block-minutes: 1
metrics-file: %s
coverage:
  report: %s
  csv: %s
`, filepath.Join(root, "in"), filepath.Join(root, "out"), filepath.Join(root, "halfhour.prom"),
		filepath.Join(root, "missing_ranges.txt"), filepath.Join(root, "file_times.csv"))

	cfg, err := config.NewConfigFromStr([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(cfg.InputDirectory, 0755))
	return cfg
}

func blockFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.raw"))
	require.NoError(t, err)
	return matches
}

func TestSplitIsResumable(t *testing.T) {
	cfg := testConfig(t)
	start := time.Date(2010, 1, 1, 10, 0, 0, 0, time.UTC)
	writeRawFile(t, cfg.InputDirectory, "TOA5_speuld_1.dat", start, 180)
	writeRawFile(t, cfg.InputDirectory, "TOA5_speuld_2.dat", start.Add(90*time.Second), 150)
	writeRawFile(t, cfg.InputDirectory, "TOA5_speuld_corrupt.dat", start, 10)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDirectory, "notes.txt"), []byte("x"), 0644))

	p, err := New(cfg)
	require.NoError(t, err)
	summary, err := p.Split(context.Background())
	require.NoError(t, err)
	require.False(t, summary.Failed())
	require.Equal(t, 2, summary.Files)
	require.Len(t, blockFiles(t, cfg.OutputDirectory), 3)
	require.NoError(t, p.WriteMetrics())
	require.NoError(t, p.Close())

	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	require.Contains(t, string(metrics), "halfhour_segmenter_processed_files")

	// the ledger survives the restart, so the tail of the second file is not
	// appended again
	p, err = New(cfg)
	require.NoError(t, err)
	defer p.Close()
	summary, err = p.Split(context.Background())
	require.NoError(t, err)
	require.False(t, summary.Failed())
	for _, report := range summary.Reports {
		require.Zero(t, report.Created+report.Appended)
	}

	runs, err := p.Catalogue().Runs("speuld")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, 330, runs[1].Records)

	var buf bytes.Buffer
	cov, err := p.Coverage(&buf, false)
	require.NoError(t, err)
	require.Equal(t, 2, cov.Files)
	require.Equal(t, 1, cov.Gaps)
	require.Equal(t, 500*time.Millisecond, cov.Missing)
	require.Contains(t, buf.String(), "Missing range: 2010-01-01 10:01:29.5 to 2010-01-01 10:01:30\n")

	csv, err := os.ReadFile(cfg.Coverage.CSV)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(csv), "filename,start_time,end_time\nTOA5_speuld_1.dat,2010-01-01 10:00:00,"))
}

func TestSplitFailsWithoutOutputDirectory(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.OutputDirectory = filepath.Join(blocker, "out")
	cfg.Database.InMemory = true

	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Split(context.Background())
	require.Error(t, err)
}

func TestCoverageScan(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.InMemory = true
	cfg.Coverage.From = "2010-01-01"
	cfg.Coverage.To = "2010-01-02"
	writeRawFile(t, cfg.InputDirectory, "a.dat", time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), 7200)

	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	var buf bytes.Buffer
	summary, err := p.Coverage(&buf, true)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Gaps)
	require.Contains(t, buf.String(), "Missing range: 2010-01-01 00:59:59.5 to 2010-01-02 00:00:00\n")

	report, err := os.ReadFile(cfg.Coverage.Report)
	require.NoError(t, err)
	require.Equal(t, buf.String(), string(report))
}

func TestExtract(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.InMemory = true
	cfg.Archive.Source = t.TempDir()
	cfg.Archive.Destination = cfg.InputDirectory

	f, err := os.Create(filepath.Join(cfg.Archive.Source, "2010.zip"))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("TOA5_speuld_1.dat")
	require.NoError(t, err)
	_, err = w.Write([]byte(header))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	result, err := p.Extract(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Extracted)
	require.FileExists(t, filepath.Join(cfg.InputDirectory, "TOA5_speuld_1.dat"))

	cfg.Archive.Source = ""
	_, err = p.Extract(context.Background())
	require.Error(t, err)
}

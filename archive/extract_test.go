package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestExtractorRun(t *testing.T) {
	source, destination := t.TempDir(), filepath.Join(t.TempDir(), "TOB")
	writeZip(t, filepath.Join(source, "2010", "week1.zip"), map[string]string{
		"TOA5_speuld_1.dat": "a",
		"sub/TOA5_speuld_2.dat": "bb",
	})
	writeZip(t, filepath.Join(source, "2011", "evil.zip"), map[string]string{
		"../escaped.dat": "x",
	})
	require.NoError(t, os.WriteFile(filepath.Join(source, "2010", "broken.zip"), []byte("not a zip"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "readme.txt"), []byte("ignored"), 0644))

	e := NewExtractor(source, destination, "")
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Result{Archives: 3, Extracted: 1, Failed: 2, Members: 2, Bytes: 3}, result)

	b, err := os.ReadFile(filepath.Join(destination, "sub", "TOA5_speuld_2.dat"))
	require.NoError(t, err)
	require.Equal(t, "bb", string(b))
	_, err = os.Stat(filepath.Join(filepath.Dir(destination), "escaped.dat"))
	require.True(t, os.IsNotExist(err))

	result, err = e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Zero(t, result.Extracted)

	// a missing member triggers a new extraction
	require.NoError(t, os.Remove(filepath.Join(destination, "TOA5_speuld_1.dat")))
	result, err = e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Extracted)
}

func TestExtractorMissingSource(t *testing.T) {
	_, err := NewExtractor(filepath.Join(t.TempDir(), "missing"), t.TempDir(), "").Run(context.Background())
	require.Error(t, err)
}

func TestTargetRejectsEscapes(t *testing.T) {
	e := NewExtractor("src", "/data/out", "")
	_, err := e.target("../../etc/passwd")
	require.ErrorIs(t, err, ErrIllegalPath)

	target, err := e.target("TOB/a.dat")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/data/out", "TOB", "a.dat"), target)
}

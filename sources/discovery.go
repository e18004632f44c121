package sources

import (
	"os"
	"path/filepath"
	"strings"
)

// ListFiles returns the regular files directly in dir whose name ends with
// extension and contains none of the exclude substrings, sorted by name.
// Filename order stands in for chronological order.
func ListFiles(dir, extension string, exclude []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), extension) || isExcluded(entry.Name(), exclude) {
			continue
		}

		files = append(files, filepath.Join(dir, entry.Name()))
	}

	return files, nil
}

func isExcluded(name string, exclude []string) bool {
	for _, pattern := range exclude {
		if pattern != "" && strings.Contains(name, pattern) {
			return true
		}
	}

	return false
}

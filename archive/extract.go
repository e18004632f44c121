package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultExtension = ".zip"
	dirModePerm      = 0755
)

var (
	// ErrIllegalPath is returned for archive members that would land outside
	// the destination directory.
	ErrIllegalPath = errors.New("archive member escapes destination")
)

var processedArchives = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "halfhour_archive",
	Name:      "processed_archives",
	Help:      "Total number of processed archives by outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(processedArchives)
}

// Result summarizes one extraction run.
type Result struct {
	Archives  int
	Extracted int
	Skipped   int
	Failed    int
	Members   int
	Bytes     uint64
}

type Extractor struct {
	source      string
	destination string
	extension   string
	log         *zap.SugaredLogger
}

func NewExtractor(source, destination, extension string) *Extractor {
	if extension == "" {
		extension = DefaultExtension
	}

	return &Extractor{
		source:      source,
		destination: destination,
		extension:   extension,
		log:         zap.L().Sugar().With("service", "archive-extractor"),
	}
}

// Run walks the source tree and extracts every archive whose members are not
// all present in the destination yet. A broken archive is logged and counted;
// only a missing source or an uncreatable destination fail the run.
func (e *Extractor) Run(ctx context.Context) (Result, error) {
	var result Result
	info, err := os.Stat(e.source)
	if err != nil {
		return result, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("source %s is not a directory", e.source)
	}

	if err := os.MkdirAll(e.destination, dirModePerm); err != nil {
		return result, fmt.Errorf("creating destination: %w", err)
	}

	err = filepath.WalkDir(e.source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.log.Warnw("could not walk path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), e.extension) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result.Archives++
		skipped, members, written, err := e.Extract(path)
		switch {
		case err != nil:
			result.Failed++
			processedArchives.WithLabelValues("failed").Inc()
			e.log.Errorw("could not extract archive", "archive", path, "error", err)
		case skipped:
			result.Skipped++
			processedArchives.WithLabelValues("skipped").Inc()
			e.log.Infow("archive is already extracted, skipping", "archive", path)
		default:
			result.Extracted++
			result.Members += members
			result.Bytes += written
			processedArchives.WithLabelValues("extracted").Inc()
			e.log.Infow("extracted archive", "archive", path, "members", members, "size", humanize.Bytes(written))
		}

		return nil
	})

	e.log.Infow("processed archives",
		"archives", result.Archives,
		"extracted", result.Extracted,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"size", humanize.Bytes(result.Bytes))
	return result, err
}

// Extract unpacks one archive into the destination unless every member
// already exists there.
func (e *Extractor) Extract(path string) (skipped bool, members int, written uint64, err error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false, 0, 0, err
	}
	defer r.Close()

	targets := make([]string, len(r.File))
	complete := true
	for i, f := range r.File {
		target, err := e.target(f.Name)
		if err != nil {
			return false, 0, 0, err
		}
		targets[i] = target

		if f.FileInfo().IsDir() {
			continue
		}
		if info, err := os.Stat(target); err != nil || !info.Mode().IsRegular() {
			complete = false
		}
	}

	if complete {
		return true, 0, 0, nil
	}

	for i, f := range r.File {
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targets[i], dirModePerm); err != nil {
				return false, members, written, err
			}
			continue
		}

		n, err := extractFile(f, targets[i])
		if err != nil {
			return false, members, written, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		members++
		written += uint64(n)
	}

	return false, members, written, nil
}

func (e *Extractor) target(name string) (string, error) {
	destination := filepath.Clean(e.destination)
	target := filepath.Join(destination, filepath.FromSlash(name))
	if target != destination && !strings.HasPrefix(target, destination+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s: %w", name, ErrIllegalPath)
	}

	return target, nil
}

func extractFile(f *zip.File, target string) (n int64, err error) {
	if err := os.MkdirAll(filepath.Dir(target), dirModePerm); err != nil {
		return 0, err
	}

	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	return io.Copy(out, rc)
}

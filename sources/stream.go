package sources

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pbudner/halfhour/parsers"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultHeaderLines is the size of the header a TOA5 datalogger file starts with.
const DefaultHeaderLines = 4

const maxLineSize = 1024 * 1024

var (
	// ErrEmptyInput is returned when a file holds no records after its header.
	ErrEmptyInput = errors.New("input file holds no records")
)

var readFileRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "halfhour_sources_file",
	Name:      "read_records",
	Help:      "Total number of records read from raw input files.",
}, []string{"path"})

func init() {
	prometheus.MustRegister(readFileRecords)
}

// File is a sequential reader over the records of one raw datalogger file.
// It keeps one record of lookahead so exhaustion is known before the caller
// asks for more.
type File struct {
	Path    string
	file    *os.File
	scanner *bufio.Scanner
	next    string
	hasNext bool
	count   int
	log     *zap.SugaredLogger
}

// Open opens path and discards headerLines lines. It fails with
// ErrEmptyInput when no record follows the header.
func Open(path string, headerLines int) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	fs := &File{
		Path:    path,
		file:    f,
		scanner: scanner,
		log:     zap.L().Sugar().With("service", "file-source", "path", path),
	}

	for i := 0; i < headerLines; i++ {
		if !scanner.Scan() {
			break
		}
	}

	if err := fs.advance(); err != nil {
		f.Close()
		return nil, err
	}

	if !fs.hasNext {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyInput)
	}

	return fs, nil
}

// Peek returns the next record without consuming it.
func (fs *File) Peek() (parsers.Record, bool) {
	if !fs.hasNext {
		return parsers.Record{}, false
	}

	return parsers.ParseRecord(fs.next), true
}

// Next consumes up to n records. It returns fewer than n only when the file
// is exhausted.
func (fs *File) Next(n int) ([]parsers.Record, error) {
	records := make([]parsers.Record, 0, n)
	for len(records) < n && fs.hasNext {
		records = append(records, parsers.ParseRecord(fs.next))
		fs.count++
		if err := fs.advance(); err != nil {
			return records, err
		}
	}

	readFileRecords.WithLabelValues(fs.Path).Add(float64(len(records)))
	return records, nil
}

// Exhausted reports whether every record has been consumed.
func (fs *File) Exhausted() bool {
	return !fs.hasNext
}

// Count returns the number of records consumed so far. Once the file is
// exhausted this is its total record count.
func (fs *File) Count() int {
	return fs.count
}

func (fs *File) Close() error {
	return fs.file.Close()
}

func (fs *File) advance() error {
	for fs.scanner.Scan() {
		line := fs.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fs.next = line
		fs.hasNext = true
		return nil
	}

	fs.next = ""
	fs.hasNext = false
	if err := fs.scanner.Err(); err != nil {
		fs.log.Errorw("failed reading file", "error", err)
		return fmt.Errorf("reading %s: %w", fs.Path, err)
	}

	return nil
}

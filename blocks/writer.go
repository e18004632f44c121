package blocks

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pbudner/halfhour/parsers"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const fileModePerm = 0644

var (
	writtenBlocks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "halfhour_blocks",
		Name:      "blocks_total",
		Help:      "Total number of block writes by outcome.",
	}, []string{"outcome"})

	writtenLines = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "halfhour_blocks",
		Name:      "written_lines",
		Help:      "Total number of lines written to block files.",
	})

	malformedFields = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "halfhour_blocks",
		Name:      "malformed_fields",
		Help:      "Total number of malformed channel values replaced by a placeholder.",
	})
)

func init() {
	prometheus.MustRegister(writtenBlocks, writtenLines, malformedFields)
}

// Contribution is one batch written into a block file.
type Contribution struct {
	Block string
	First time.Time
	Lines int
}

// Ledger remembers contributions so re-running a file whose tail went into an
// incomplete block does not append the same lines twice.
type Ledger interface {
	HasContribution(c Contribution) (bool, error)
	RecordContribution(c Contribution) error
}

// Result describes one call to Write.
type Result struct {
	Outcome       Outcome
	Key           Key
	Path          string
	ExistingLines int
	WrittenLines  int
	Malformed     int
}

type Writer struct {
	dir       string
	site      string
	grid      Grid
	expected  int
	formatter Formatter
	parser    *parsers.TimestampParser
	ledger    Ledger
	log       *zap.SugaredLogger
}

// WithLedger makes the writer consult and update l when appending.
func WithLedger(l Ledger) func(*Writer) {
	return func(w *Writer) {
		w.ledger = l
	}
}

// NewWriter creates a writer for the blocks of site in dir. A complete block
// holds grid.BlockSize(frequency) lines.
func NewWriter(dir, site string, grid Grid, frequency int, formatter Formatter, parser *parsers.TimestampParser, options ...func(*Writer)) *Writer {
	w := &Writer{
		dir:       dir,
		site:      site,
		grid:      grid,
		expected:  grid.BlockSize(frequency),
		formatter: formatter,
		parser:    parser,
		log:       zap.L().Sugar().With("service", "block-writer", "site", site),
	}

	for _, option := range options {
		option(w)
	}

	return w
}

// ExpectedLines is the length of a complete block file.
func (w *Writer) ExpectedLines() int {
	return w.expected
}

// Write stores batch in the block file of its first record. An existing
// complete file is left alone, an incomplete one is appended to and one that
// is or would become too long is rejected.
func (w *Writer) Write(batch []parsers.Record) (Result, error) {
	if len(batch) == 0 {
		return Result{}, ErrEmptyBatch
	}

	first, err := w.parser.Parse(batch[0].RawTimestamp())
	if err != nil {
		return Result{}, err
	}

	key := w.grid.KeyFor(first, w.site)
	result := Result{
		Key:  key,
		Path: filepath.Join(w.dir, key.Filename()),
	}

	contribution := Contribution{Block: key.Filename(), First: first, Lines: len(batch)}
	existing, partial, err := countLines(result.Path)
	switch {
	case errors.Is(err, os.ErrNotExist) && len(batch) <= w.expected:
		return w.create(result, batch, contribution)
	case errors.Is(err, os.ErrNotExist):
		// an oversized batch for a missing file is rejected below
	case err != nil:
		return result, &FilesystemError{Op: "count", Path: result.Path, Err: err}
	}
	result.ExistingLines = existing

	if existing < w.expected && w.ledger != nil {
		seen, err := w.ledger.HasContribution(contribution)
		if err != nil {
			return result, err
		}
		if seen {
			result.Outcome = SkippedDuplicate
			w.log.Infow("batch was already written to block file, skipping", "file", key.Filename(), "first", first)
			writtenBlocks.WithLabelValues(result.Outcome.String()).Inc()
			return result, nil
		}
	}

	switch {
	case existing == w.expected:
		result.Outcome = SkippedComplete
		w.log.Debugw("block file is complete, skipping", "file", key.Filename())
	case existing+len(batch) > w.expected:
		result.Outcome = RejectedOversize
		w.log.Warnw("block file would exceed expected length, refusing to write",
			"file", key.Filename(), "lines", existing, "batch", len(batch), "expected", w.expected)
	default:
		body, malformed, err := w.format(batch)
		if err != nil {
			return result, err
		}
		result.Malformed = malformed

		if partial {
			// a crash left the last line unterminated
			w.log.Warnw("block file ends in a partial line, terminating it before appending", "file", key.Filename())
			body = append([]byte{'\n'}, body...)
		}

		if err := w.appendLines(result.Path, body, contribution); err != nil {
			return result, err
		}
		result.Outcome = Appended
		result.WrittenLines = len(batch)
		w.log.Debugw("appended to incomplete block file", "file", key.Filename(), "lines", existing, "batch", len(batch))
	}

	writtenBlocks.WithLabelValues(result.Outcome.String()).Inc()
	return result, nil
}

func (w *Writer) create(result Result, batch []parsers.Record, contribution Contribution) (Result, error) {
	body, malformed, err := w.format(batch)
	if err != nil {
		return result, err
	}
	result.Malformed = malformed

	f, err := os.OpenFile(result.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileModePerm)
	if err != nil {
		return result, &FilesystemError{Op: "create", Path: result.Path, Err: err}
	}

	if err := writeAndClose(f, body); err != nil {
		return result, &FilesystemError{Op: "write", Path: result.Path, Err: err}
	}

	writtenLines.Add(float64(contribution.Lines))
	if err := w.record(contribution); err != nil {
		return result, err
	}

	result.Outcome = Created
	result.WrittenLines = contribution.Lines
	writtenBlocks.WithLabelValues(Created.String()).Inc()
	w.log.Debugw("created block file", "file", result.Key.Filename(), "lines", contribution.Lines)
	return result, nil
}

func (w *Writer) appendLines(path string, body []byte, contribution Contribution) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, fileModePerm)
	if err != nil {
		return &FilesystemError{Op: "open", Path: path, Err: err}
	}

	if err := writeAndClose(f, body); err != nil {
		return &FilesystemError{Op: "append", Path: path, Err: err}
	}

	writtenLines.Add(float64(contribution.Lines))
	return w.record(contribution)
}

// record adds a written contribution to the ledger. When that fails the lines
// are already on disk, so the contribution is logged for manual repair.
func (w *Writer) record(contribution Contribution) error {
	if w.ledger == nil {
		return nil
	}

	if err := w.ledger.RecordContribution(contribution); err != nil {
		w.log.Errorw("block was written but not recorded in the ledger, a rerun may append it again",
			"file", contribution.Block, "first", contribution.First, "lines", contribution.Lines, "error", err)
		return err
	}

	return nil
}

// format renders the whole batch up front so a failing record never leaves a
// partially written block behind.
func (w *Writer) format(batch []parsers.Record) ([]byte, int, error) {
	var buf bytes.Buffer
	total := 0
	for _, record := range batch {
		line, malformed, err := w.formatter.FormatRecord(record)
		if err != nil {
			return nil, total, err
		}

		total += malformed
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if total > 0 {
		malformedFields.Add(float64(total))
	}

	return buf.Bytes(), total, nil
}

func writeAndClose(f *os.File, body []byte) (err error) {
	defer closeWithError(f, &err)

	bw := bufio.NewWriter(f)
	if _, err = bw.Write(body); err != nil {
		return err
	}

	return bw.Flush()
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// countLines counts the lines of path, including an unterminated last line,
// and reports whether such a partial line exists.
func countLines(path string) (count int, partial bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false, err
	}
	defer closeWithError(f, &err)

	buf := make([]byte, 32*1024)
	var last byte
	for {
		n, rErr := f.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}

		if rErr == io.EOF {
			break
		}
		if rErr != nil {
			return count, false, rErr
		}
	}

	if last != 0 && last != '\n' {
		count++
		partial = true
	}

	return count, partial, nil
}

package segmenter

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pbudner/halfhour/blocks"
	"github.com/pbudner/halfhour/parsers"
	"github.com/pbudner/halfhour/sources"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var processedFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "halfhour_segmenter",
	Name:      "processed_files",
	Help:      "Total number of processed input files by outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(processedFiles)
}

// BlockWriter persists one batch of records into its block file.
type BlockWriter interface {
	Write(batch []parsers.Record) (blocks.Result, error)
}

// Sink receives the report of every processed file, e.g. to catalogue it or
// to publish it. Sink errors are logged and never fail the file.
type Sink interface {
	Handle(ctx context.Context, report Report) error
}

type Options struct {
	HeaderLines int
	Frequency   int
	Grid        blocks.Grid
}

// Driver cuts raw files into grid-aligned blocks. Files are processed one at
// a time, in the order they are given.
type Driver struct {
	options Options
	writer  BlockWriter
	parser  *parsers.TimestampParser
	sinks   []Sink
	log     *zap.SugaredLogger
}

// WithSink adds a sink that is called after every file.
func WithSink(s Sink) func(*Driver) {
	return func(d *Driver) {
		d.sinks = append(d.sinks, s)
	}
}

func NewDriver(options Options, writer BlockWriter, parser *parsers.TimestampParser, opts ...func(*Driver)) *Driver {
	if options.HeaderLines < 0 {
		options.HeaderLines = sources.DefaultHeaderLines
	}

	d := &Driver{
		options: options,
		writer:  writer,
		parser:  parser,
		log:     zap.L().Sugar().With("service", "segmenter"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run processes paths in order. The context is only checked between files, so
// a canceled run always stops at a file boundary.
func (d *Driver) Run(ctx context.Context, paths []string) Summary {
	summary := Summary{Reports: make([]Report, 0, len(paths))}
	for _, path := range paths {
		if ctx.Err() != nil {
			d.log.Warnw("run canceled, stopping before next file", "file", filepath.Base(path), "remaining", len(paths)-summary.Files)
			summary.Canceled = true
			break
		}

		report := d.ProcessFile(path)
		for _, sink := range d.sinks {
			if err := sink.Handle(ctx, report); err != nil {
				d.log.Errorw("could not hand over file report", "file", report.Name, "error", err)
			}
		}

		summary.Files++
		summary.Records += report.Records
		if report.Faulty() {
			summary.Faulty++
		}
		summary.Reports = append(summary.Reports, report)
	}

	d.log.Infow("run finished",
		"files", summary.Files,
		"faulty", summary.Faulty,
		"records", humanize.Comma(int64(summary.Records)))
	return summary
}

// ProcessFile segments a single file. Failures are captured in the report;
// they never abort the caller.
func (d *Driver) ProcessFile(path string) (report Report) {
	report = Report{Path: path, Name: filepath.Base(path), State: StateStart}

	var fs *sources.File
	defer func() {
		if fs != nil {
			report.Records = fs.Count()
			if err := fs.Close(); err != nil {
				d.log.Warnw("could not close input file", "file", report.Name, "error", err)
			}
		}
		d.logReport(report)
	}()

	var err error
	var tail []parsers.Record
	for !report.State.Terminal() {
		switch report.State {
		case StateStart:
			fs, err = sources.Open(path, d.options.HeaderLines)
			if err != nil {
				report.fail(err)
				continue
			}
			report.State = StateAligningHead

		case StateAligningHead:
			report.State = d.alignHead(fs, &report)

		case StateEmittingFullBlocks:
			if fs.Exhausted() {
				report.State = StateDone
				continue
			}

			size := d.options.Grid.BlockSize(d.options.Frequency)
			batch, err := fs.Next(size)
			if err != nil {
				report.fail(err)
				continue
			}

			// a short batch only happens at the end of the file
			if len(batch) < size {
				tail = batch
				report.State = StateFlushingTail
				continue
			}

			d.write(batch, &report)

		case StateFlushingTail:
			if d.write(tail, &report) {
				report.State = StateDone
			}
		}
	}

	return report
}

// alignHead writes the records up to the first grid line when the file does
// not start on one.
func (d *Driver) alignHead(fs *sources.File, report *Report) State {
	head, _ := fs.Peek()
	first, err := d.parser.Parse(head.RawTimestamp())
	if err != nil {
		report.fail(err)
		return StateError
	}
	report.Start = first

	if d.options.Grid.IsOnGrid(first) {
		return StateEmittingFullBlocks
	}

	boundary, count := d.options.Grid.NextGridPoint(first, d.options.Frequency)
	batch, err := fs.Next(count)
	if err != nil {
		report.fail(err)
		return StateError
	}

	d.log.Debugw("file starts off the grid", "file", report.Name, "first", first, "boundary", boundary, "records", len(batch))
	if !d.write(batch, report) {
		return StateError
	}

	return StateEmittingFullBlocks
}

// write hands batch to the block writer. Errors that only concern the batch
// are counted as a failed block; filesystem and ledger errors end the file.
// It returns false when the file is in the error state.
func (d *Driver) write(batch []parsers.Record, report *Report) bool {
	if len(batch) == 0 {
		return true
	}
	d.trackEnd(batch, report)

	result, err := d.writer.Write(batch)
	if err != nil {
		var tsErr *parsers.TimestampFormatError
		var fieldErr *blocks.MalformedFieldError
		if errors.As(err, &tsErr) || errors.As(err, &fieldErr) {
			report.Failed++
			d.log.Errorw("could not write block", "file", report.Name, "block", result.Key.Filename(), "error", err)
			return true
		}

		report.fail(err)
		return false
	}

	report.count(result)
	return true
}

func (d *Driver) trackEnd(batch []parsers.Record, report *Report) {
	last, err := d.parser.Parse(batch[len(batch)-1].RawTimestamp())
	if err != nil {
		return
	}

	if last.After(report.End) {
		report.End = last
	}
}

func (d *Driver) logReport(report Report) {
	processedFiles.WithLabelValues(report.Outcome()).Inc()
	fields := []interface{}{
		"file", report.Name,
		"outcome", report.Outcome(),
		"records", humanize.Comma(int64(report.Records)),
		"created", report.Created,
		"appended", report.Appended,
		"skipped", report.Skipped,
		"duplicates", report.Duplicates,
		"rejected", report.Rejected,
		"failed", report.Failed,
	}
	if !report.Start.IsZero() {
		fields = append(fields, "start", report.Start, "end", report.End)
	}
	if report.Malformed > 0 {
		fields = append(fields, "malformed", report.Malformed)
	}

	switch {
	case report.Empty():
		d.log.Warnw("input file holds no records, skipping", fields...)
	case report.Err != nil:
		d.log.Errorw("could not process file", append(fields, "error", report.Err)...)
	case report.Faulty():
		d.log.Warnw("processed file with rejected blocks", fields...)
	default:
		d.log.Infow("processed file", fields...)
	}
}

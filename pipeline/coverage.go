package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pbudner/halfhour/coverage"
	"github.com/pbudner/halfhour/sources"
)

// Coverage reports the gaps in the input data. With scan set the spans are
// read from the input files, otherwise from the catalogue of earlier runs.
func (p *Pipeline) Coverage(w io.Writer, scan bool) (coverage.Summary, error) {
	var spans []sources.Span
	if scan {
		if err := p.cfg.ValidateInput(); err != nil {
			return coverage.Summary{}, err
		}

		paths, err := sources.ListFiles(p.cfg.InputDirectory, p.cfg.FileExtension, p.cfg.Exclude)
		if err != nil {
			return coverage.Summary{}, err
		}

		parser, err := p.parser()
		if err != nil {
			return coverage.Summary{}, err
		}

		spans, _ = coverage.Scan(paths, p.cfg.HeaderLines, parser)
	} else {
		files, err := p.catalogue.Files()
		if err != nil {
			return coverage.Summary{}, err
		}

		for _, file := range files {
			spans = append(spans, sources.Span{Path: file.Path, Start: file.Start, End: file.End})
		}
	}

	intervals := coverage.FromSpans(spans)
	from, to, err := p.cfg.CoverageRange()
	if err != nil {
		return coverage.Summary{}, err
	}

	first, last := coverage.Bounds(intervals)
	if from.IsZero() {
		from = first
	}
	if to.IsZero() {
		to = last
	}
	if !to.After(from) {
		return coverage.Summary{}, errors.New("no time range to report on, set coverage.from and coverage.to")
	}

	if p.cfg.Coverage.CSV != "" {
		if err := writeFile(p.cfg.Coverage.CSV, func(w io.Writer) error { return coverage.WriteCatalogueCSV(w, spans) }); err != nil {
			return coverage.Summary{}, fmt.Errorf("writing catalogue csv: %w", err)
		}
	}

	gaps := coverage.Gaps(intervals, from, to)
	summary := coverage.Summarize(intervals, gaps, from, to)

	if p.cfg.Coverage.Report != "" {
		if err := writeFile(p.cfg.Coverage.Report, func(w io.Writer) error { return coverage.WriteReport(w, gaps, summary) }); err != nil {
			return summary, fmt.Errorf("writing coverage report: %w", err)
		}
	}

	p.log.Infow("computed coverage", "files", len(spans), "gaps", len(gaps), "ratio", summary.Ratio)
	return summary, coverage.WriteReport(w, gaps, summary)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	return write(f)
}

package coverage

import (
	"github.com/pbudner/halfhour/parsers"
	"github.com/pbudner/halfhour/sources"
	"go.uber.org/zap"
)

// Scan reads the first and last timestamp of every path without segmenting
// it. Files that cannot be read keep an empty span and are counted as failed.
func Scan(paths []string, headerLines int, parser *parsers.TimestampParser) (spans []sources.Span, failed int) {
	log := zap.L().Sugar().With("service", "coverage-scan")
	spans = make([]sources.Span, 0, len(paths))
	for _, path := range paths {
		span, err := sources.ReadSpan(path, headerLines, parser)
		if err != nil {
			log.Errorw("could not read file span", "path", path, "error", err)
			spans = append(spans, sources.Span{Path: path})
			failed++
			continue
		}

		spans = append(spans, span)
	}

	log.Infow("scanned input files", "files", len(paths), "failed", failed)
	return spans, failed
}

// FromSpans turns scanned spans into intervals, dropping unreadable files.
func FromSpans(spans []sources.Span) []Interval {
	intervals := make([]Interval, 0, len(spans))
	for _, span := range spans {
		if span.Start.IsZero() || span.End.IsZero() {
			continue
		}
		intervals = append(intervals, Interval{Name: span.Name(), Start: span.Start, End: span.End})
	}

	return intervals
}

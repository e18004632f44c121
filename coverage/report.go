package coverage

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/pbudner/halfhour/sources"
)

// TimestampLayout renders timestamps the way the datalogger writes them.
const TimestampLayout = "2006-01-02 15:04:05.999999"

// WriteReport writes one "Missing range" line per gap followed by the summary.
func WriteReport(w io.Writer, gaps []Gap, summary Summary) error {
	for _, gap := range gaps {
		if _, err := fmt.Fprintf(w, "Missing range: %s to %s\n", gap.Start.Format(TimestampLayout), gap.End.Format(TimestampLayout)); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\nFiles: %s\nCovered: %s (%.2f%%)\nMissing: %s in %d gaps (mean %s, stddev %s, longest %s)\nCovered days: %d of %d\n",
		humanize.Comma(int64(summary.Files)),
		summary.Covered, summary.Ratio*100,
		summary.Missing, summary.Gaps, summary.MeanGap, summary.StdDevGap, summary.LongestGap,
		summary.CoveredDays, summary.TotalDays)
	return err
}

// WriteCatalogueCSV writes the file spans as filename,start_time,end_time.
// Files whose span is unknown get empty times.
func WriteCatalogueCSV(w io.Writer, spans []sources.Span) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"filename", "start_time", "end_time"}); err != nil {
		return err
	}

	for _, span := range spans {
		record := []string{span.Name(), "", ""}
		if !span.Start.IsZero() {
			record[1] = span.Start.Format(TimestampLayout)
		}
		if !span.End.IsZero() {
			record[2] = span.End.Format(TimestampLayout)
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

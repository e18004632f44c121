package segmenter

import (
	"context"
	"time"

	"github.com/pbudner/halfhour/stores"
)

// CatalogueSink records every processed file in the catalogue.
type CatalogueSink struct {
	catalogue *stores.Catalogue
	site      string
	runID     string
}

func NewCatalogueSink(catalogue *stores.Catalogue, site, runID string) *CatalogueSink {
	return &CatalogueSink{catalogue: catalogue, site: site, runID: runID}
}

func (s *CatalogueSink) Handle(_ context.Context, report Report) error {
	return s.catalogue.PutFile(stores.FileEntry{
		Name:        report.Name,
		Path:        report.Path,
		Site:        s.site,
		Start:       report.Start,
		End:         report.End,
		Records:     report.Records,
		State:       report.State.String(),
		Error:       report.Error,
		Created:     report.Created,
		Appended:    report.Appended,
		Skipped:     report.Skipped,
		Duplicates:  report.Duplicates,
		Rejected:    report.Rejected,
		Failed:      report.Failed,
		ProcessedAt: time.Now(),
		RunID:       s.runID,
	})
}

package segmenter

import (
	"errors"
	"time"

	"github.com/pbudner/halfhour/blocks"
	"github.com/pbudner/halfhour/sources"
)

// Report is the outcome of segmenting one input file.
type Report struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	State      State     `json:"state"`
	Err        error     `json:"-"`
	Error      string    `json:"error,omitempty"`
	Records    int       `json:"records"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Created    int       `json:"created"`
	Appended   int       `json:"appended"`
	Skipped    int       `json:"skipped"`
	Duplicates int       `json:"duplicates"`
	Rejected   int       `json:"rejected"`
	Failed     int       `json:"failed"`
	Malformed  int       `json:"malformed"`
}

// Empty reports whether the file was skipped for holding no records.
func (r Report) Empty() bool {
	return errors.Is(r.Err, sources.ErrEmptyInput)
}

// Faulty reports whether the file should turn the run's exit status non-zero.
// Empty files are skipped, not faulty.
func (r Report) Faulty() bool {
	return (r.State == StateError && !r.Empty()) || r.Rejected > 0 || r.Failed > 0
}

// Outcome summarizes the report in one word for the progress log.
func (r Report) Outcome() string {
	switch {
	case r.Empty():
		return "empty"
	case r.State == StateError:
		return "error"
	case r.Rejected > 0:
		return blocks.RejectedOversize.String()
	case r.Failed > 0:
		return "failed-blocks"
	case r.Created > 0:
		return blocks.Created.String()
	case r.Appended > 0:
		return blocks.Appended.String()
	default:
		return blocks.SkippedComplete.String()
	}
}

func (r *Report) count(result blocks.Result) {
	r.Malformed += result.Malformed
	switch result.Outcome {
	case blocks.Created:
		r.Created++
	case blocks.Appended:
		r.Appended++
	case blocks.SkippedComplete:
		r.Skipped++
	case blocks.SkippedDuplicate:
		r.Duplicates++
	case blocks.RejectedOversize:
		r.Rejected++
	}
}

func (r *Report) fail(err error) {
	r.State = StateError
	r.Err = err
	r.Error = err.Error()
}

// Summary aggregates the reports of one run.
type Summary struct {
	Reports  []Report
	Files    int
	Faulty   int
	Records  int
	Canceled bool
}

// Failed reports whether any file ended in an error or rejected a block.
func (s Summary) Failed() bool {
	return s.Faulty > 0
}

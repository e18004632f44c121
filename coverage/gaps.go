package coverage

import (
	"sort"
	"time"

	"github.com/pbudner/halfhour/stores"
)

// Interval is the time range covered by one input file.
type Interval struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Gap is a time range no input file covers.
type Gap struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (g Gap) Duration() time.Duration {
	return g.End.Sub(g.Start)
}

// FromCatalogue turns catalogue entries into intervals, dropping entries
// without a time range.
func FromCatalogue(entries []stores.FileEntry) []Interval {
	intervals := make([]Interval, 0, len(entries))
	for _, entry := range entries {
		if !entry.HasSpan() {
			continue
		}
		intervals = append(intervals, Interval{Name: entry.Name, Start: entry.Start, End: entry.End})
	}

	return intervals
}

// Gaps sweeps the intervals in start order and returns every range between
// from and to that none of them covers.
func Gaps(intervals []Interval, from, to time.Time) []Gap {
	if !to.After(from) {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var gaps []Gap
	current := from
	for _, interval := range sorted {
		if !current.Before(to) {
			break
		}

		if interval.Start.After(current) {
			end := interval.Start
			if end.After(to) {
				end = to
			}
			gaps = append(gaps, Gap{Start: current, End: end})
		}

		if interval.End.After(current) {
			current = interval.End
		}
	}

	if current.Before(to) {
		gaps = append(gaps, Gap{Start: current, End: to})
	}

	return gaps
}

// Bounds returns the earliest start and the latest end of the intervals.
func Bounds(intervals []Interval) (from, to time.Time) {
	for _, interval := range intervals {
		if from.IsZero() || interval.Start.Before(from) {
			from = interval.Start
		}
		if interval.End.After(to) {
			to = interval.End
		}
	}

	return from, to
}

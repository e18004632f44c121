package coverage

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary condenses the coverage of a time range.
type Summary struct {
	From        time.Time     `json:"from"`
	To          time.Time     `json:"to"`
	Files       int           `json:"files"`
	Covered     time.Duration `json:"covered"`
	Missing     time.Duration `json:"missing"`
	Ratio       float64       `json:"ratio"`
	Gaps        int           `json:"gaps"`
	MeanGap     time.Duration `json:"mean_gap"`
	StdDevGap   time.Duration `json:"stddev_gap"`
	LongestGap  time.Duration `json:"longest_gap"`
	CoveredDays int           `json:"covered_days"`
	TotalDays   int           `json:"total_days"`
}

func Summarize(intervals []Interval, gaps []Gap, from, to time.Time) Summary {
	summary := Summary{
		From:      from,
		To:        to,
		Files:     len(intervals),
		Gaps:      len(gaps),
		TotalDays: len(days(from, to)),
	}

	total := to.Sub(from)
	if total <= 0 {
		return summary
	}

	seconds := make([]float64, len(gaps))
	for i, gap := range gaps {
		seconds[i] = gap.Duration().Seconds()
	}

	if len(seconds) > 0 {
		summary.Missing = fromSeconds(floats.Sum(seconds))
		summary.LongestGap = fromSeconds(floats.Max(seconds))

		mean, std := stat.MeanStdDev(seconds, nil)
		summary.MeanGap = fromSeconds(mean)
		if !math.IsNaN(std) {
			summary.StdDevGap = fromSeconds(std)
		}
	}

	summary.Covered = total - summary.Missing
	summary.Ratio = summary.Covered.Seconds() / total.Seconds()
	summary.CoveredDays = coveredDays(intervals, from, to)
	return summary
}

func fromSeconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// coveredDays counts the calendar days in [from, to) that overlap at least
// one interval.
func coveredDays(intervals []Interval, from, to time.Time) int {
	covered := make(map[time.Time]bool)
	for _, interval := range intervals {
		start, end := interval.Start, interval.End
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if !end.After(start) {
			continue
		}

		for _, day := range days(start, end) {
			covered[day] = true
		}
	}

	return len(covered)
}

// days lists the midnights of every calendar day overlapping [from, to).
func days(from, to time.Time) []time.Time {
	var out []time.Time
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for day.Before(to) {
		out = append(out, day)
		day = day.AddDate(0, 0, 1)
	}

	return out
}

package blocks

import (
	"fmt"
	"time"
)

// DefaultGridMinutes is the length of one block in minutes.
const DefaultGridMinutes = 30

// Grid is the set of wall-clock boundaries blocks are aligned to: every
// Minutes minutes, starting at the full hour.
type Grid struct {
	Minutes int
}

func NewGrid(minutes int) (Grid, error) {
	if minutes <= 0 || 60%minutes != 0 {
		return Grid{}, fmt.Errorf("block length of %d minutes does not evenly divide an hour", minutes)
	}

	return Grid{Minutes: minutes}, nil
}

// Truncate returns the grid line at or before ts.
func (g Grid) Truncate(ts time.Time) time.Time {
	minute := ts.Minute() - ts.Minute()%g.Minutes
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), minute, 0, 0, ts.Location())
}

// IsOnGrid reports whether ts sits exactly on a grid line.
func (g Grid) IsOnGrid(ts time.Time) bool {
	return ts.Equal(g.Truncate(ts))
}

// NextGridPoint returns the first grid line after ts together with the number
// of records, starting with the one stamped ts, a stream sampled at frequency
// holds before reaching it. Partial records round up.
func (g Grid) NextGridPoint(ts time.Time, frequency int) (time.Time, int) {
	next := g.Truncate(ts).Add(g.Duration())
	return next, RecordsIn(next.Sub(ts), frequency)
}

// Duration is the length of one block.
func (g Grid) Duration() time.Duration {
	return time.Duration(g.Minutes) * time.Minute
}

// BlockSize is the number of records in a complete block.
func (g Grid) BlockSize(frequency int) int {
	return g.Minutes * 60 * frequency
}

// RecordsIn converts d into a record count at frequency records per second,
// rounding up. The arithmetic stays in integer nanoseconds so fractional
// seconds never pick up floating point error.
func RecordsIn(d time.Duration, frequency int) int {
	if d <= 0 {
		return 0
	}

	samples := int64(d) * int64(frequency)
	return int((samples + int64(time.Second) - 1) / int64(time.Second))
}

package blocks

import (
	"fmt"
	"time"
)

// Key identifies one block file: a site and the grid line the block starts at.
type Key struct {
	Site  string
	Start time.Time
}

// KeyFor derives the key of the block ts falls into.
func (g Grid) KeyFor(ts time.Time, site string) Key {
	return Key{
		Site:  site,
		Start: g.Truncate(ts),
	}
}

// Filename returns the canonical name {YYYY-MM-DD}_{HHMM}_{site}.raw.
func (k Key) Filename() string {
	return fmt.Sprintf("%s_%s.raw", k.Start.Format("2006-01-02_1504"), k.Site)
}

func (k Key) String() string {
	return k.Filename()
}

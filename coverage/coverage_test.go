package coverage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pbudner/halfhour/parsers"
	"github.com/pbudner/halfhour/sources"
	"github.com/pbudner/halfhour/stores"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

func at(hours float64) time.Time {
	return day.Add(time.Duration(hours * float64(time.Hour)))
}

func TestGaps(t *testing.T) {
	intervals := []Interval{
		{Name: "c", Start: at(10), End: at(12)},
		{Name: "a", Start: at(1), End: at(3)},
		{Name: "b", Start: at(2), End: at(4)},
		{Name: "inner", Start: at(2.5), End: at(3.5)},
	}

	gaps := Gaps(intervals, at(0), at(24))
	require.Equal(t, []Gap{
		{Start: at(0), End: at(1)},
		{Start: at(4), End: at(10)},
		{Start: at(12), End: at(24)},
	}, gaps)

	require.Empty(t, Gaps(intervals, at(1), at(4)))
	require.Equal(t, []Gap{{Start: at(4), End: at(5)}}, Gaps(intervals, at(1), at(5)))
	require.Equal(t, []Gap{{Start: at(0), End: at(24)}}, Gaps(nil, at(0), at(24)))
	require.Nil(t, Gaps(intervals, at(5), at(5)))

	// an interval starting after the range only closes the range
	require.Equal(t, []Gap{{Start: at(4), End: at(6)}}, Gaps(intervals, at(3), at(6)))
}

func TestSummarize(t *testing.T) {
	intervals := []Interval{
		{Start: at(0), End: at(12)},
		{Start: at(14), End: at(24)},
		{Start: at(48), End: at(72)},
	}
	from, to := at(0), at(72)
	gaps := Gaps(intervals, from, to)
	require.Len(t, gaps, 2)

	summary := Summarize(intervals, gaps, from, to)
	require.Equal(t, 3, summary.Files)
	require.Equal(t, 2, summary.Gaps)
	require.Equal(t, 26*time.Hour, summary.Missing)
	require.Equal(t, 46*time.Hour, summary.Covered)
	require.InDelta(t, 46.0/72.0, summary.Ratio, 1e-9)
	require.Equal(t, 13*time.Hour, summary.MeanGap)
	require.Equal(t, 24*time.Hour, summary.LongestGap)
	require.Equal(t, 2, summary.CoveredDays)
	require.Equal(t, 3, summary.TotalDays)

	single := Summarize(intervals[:1], Gaps(intervals[:1], at(0), at(24)), at(0), at(24))
	require.Equal(t, 12*time.Hour, single.MeanGap)
	require.Zero(t, single.StdDevGap)
}

func TestWriteReport(t *testing.T) {
	gaps := []Gap{{Start: at(0), End: day.Add(time.Hour + 50*time.Millisecond)}}
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, gaps, Summarize(nil, gaps, at(0), at(2))))
	require.True(t, strings.HasPrefix(buf.String(), "Missing range: 2010-01-01 00:00:00 to 2010-01-01 01:00:00.05\n"))
	require.Contains(t, buf.String(), "Covered days: 0 of 1")
}

func TestFromCatalogue(t *testing.T) {
	intervals := FromCatalogue([]stores.FileEntry{
		{Name: "a.dat", Start: at(0), End: at(1)},
		{Name: "empty.dat", State: "error"},
	})
	require.Equal(t, []Interval{{Name: "a.dat", Start: at(0), End: at(1)}}, intervals)
}

func TestScanAndCatalogueCSV(t *testing.T) {
	dir := t.TempDir()
	content := "h1\nh2\nh3\nh4\n"
	for i := 0; i < 3; i++ {
		content += fmt.Sprintf("\"2010-01-01 10:00:0%d.5\",%d,1,2,3,4,5,6,7\n", i, i)
	}
	good := filepath.Join(dir, "good.dat")
	require.NoError(t, os.WriteFile(good, []byte(content), 0644))
	empty := filepath.Join(dir, "empty.dat")
	require.NoError(t, os.WriteFile(empty, []byte("h1\nh2\nh3\nh4\n"), 0644))

	parser, err := parsers.NewTimestampParser(nil, "")
	require.NoError(t, err)

	spans, failed := Scan([]string{empty, good}, sources.DefaultHeaderLines, parser)
	require.Equal(t, 1, failed)
	require.Len(t, spans, 2)
	require.Len(t, FromSpans(spans), 1)

	var buf bytes.Buffer
	require.NoError(t, WriteCatalogueCSV(&buf, spans))
	require.Equal(t, "filename,start_time,end_time\n"+
		"empty.dat,,\n"+
		"good.dat,2010-01-01 10:00:00.5,2010-01-01 10:00:02.5\n", buf.String())
}

func TestBounds(t *testing.T) {
	from, to := Bounds([]Interval{{Start: at(5), End: at(6)}, {Start: at(1), End: at(2)}, {Start: at(3), End: at(9)}})
	require.Equal(t, at(1), from)
	require.Equal(t, at(9), to)

	from, to = Bounds(nil)
	require.True(t, from.IsZero())
	require.True(t, to.IsZero())
}

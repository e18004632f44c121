package parsers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimestampParser(t *testing.T) {
	parser, err := NewTimestampParser(nil, "")
	require.NoError(t, err)

	ts, err := parser.Parse(`"2010-01-01 00:17:03.05"`)
	require.NoError(t, err)
	require.Equal(t, time.Date(2010, 1, 1, 0, 17, 3, 50*int(time.Millisecond), time.UTC), ts)

	ts, err = parser.Parse("2010-01-01 00:30:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2010, 1, 1, 0, 30, 0, 0, time.UTC), ts)

	ts, err = parser.Parse("2010-01-01 00:30:00.123456789")
	require.NoError(t, err)
	require.Equal(t, 123456000, ts.Nanosecond())

	_, err = parser.Parse("01/01/2010 00:30")
	require.Error(t, err)
	var formatErr *TimestampFormatError
	require.True(t, errors.As(err, &formatErr))
	require.Equal(t, "01/01/2010 00:30", formatErr.Value)
}

func TestTimestampParserWithLocation(t *testing.T) {
	parser, err := NewTimestampParser([]string{"02/01/2006 15:04:05"}, "Europe/Amsterdam")
	require.NoError(t, err)

	ts, err := parser.Parse("23/02/2022 12:00:00")
	require.NoError(t, err)
	require.Equal(t, 11, ts.UTC().Hour())

	_, err = NewTimestampParser(nil, "Not/AZone")
	require.Error(t, err)
}

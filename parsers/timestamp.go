package parsers

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimestampLayouts are the layouts a datalogger writes into the first
// column, with and without fractional seconds.
var DefaultTimestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// TimestampFormatError is returned when a timestamp matches none of the
// accepted layouts.
type TimestampFormatError struct {
	Value string
}

func (e *TimestampFormatError) Error() string {
	return fmt.Sprintf("unrecognized timestamp format: %q", e.Value)
}

type TimestampParser struct {
	tz      *time.Location
	layouts []string
}

func NewTimestampParser(layouts []string, tzIanaKey string) (*TimestampParser, error) {
	tz := time.UTC
	if tzIanaKey != "" {
		var err error
		tz, err = time.LoadLocation(tzIanaKey)
		if err != nil {
			return nil, fmt.Errorf("loading timezone %s: %w", tzIanaKey, err)
		}
	}

	if len(layouts) == 0 {
		layouts = DefaultTimestampLayouts
	}

	return &TimestampParser{
		layouts: layouts,
		tz:      tz,
	}, nil
}

// Parse strips surrounding quotes and whitespace and tries each layout in
// order. The result has microsecond resolution.
func (p TimestampParser) Parse(input string) (time.Time, error) {
	value := strings.Trim(strings.TrimSpace(input), "\"")
	for _, layout := range p.layouts {
		timestamp, err := time.ParseInLocation(layout, value, p.tz)
		if err == nil {
			return timestamp.Truncate(time.Microsecond), nil
		}
	}

	return time.Time{}, &TimestampFormatError{Value: value}
}

package blocks

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pbudner/halfhour/parsers"
)

const (
	// DefaultNaNToken marks a missing channel reading.
	DefaultNaNToken = "NAN"

	// FirstChannelColumn and ChannelCount select the persisted channels of a record.
	FirstChannelColumn = 2
	ChannelCount       = 7
)

// MalformedPolicy decides what happens to a block holding a malformed field.
type MalformedPolicy string

const (
	// PolicyFail rejects the whole block.
	PolicyFail MalformedPolicy = "fail"
	// PolicyPlaceholder replaces the field and keeps going.
	PolicyPlaceholder MalformedPolicy = "placeholder"
)

func (p MalformedPolicy) Valid() bool {
	return p == PolicyFail || p == PolicyPlaceholder
}

// Formatter renders records into block file lines.
type Formatter struct {
	NaNToken    string
	Policy      MalformedPolicy
	Placeholder string
}

func NewFormatter(nanToken string, policy MalformedPolicy, placeholder string) Formatter {
	if nanToken == "" {
		nanToken = DefaultNaNToken
	}
	if policy == "" {
		policy = PolicyFail
	}
	if placeholder == "" {
		placeholder = nanToken
	}

	return Formatter{
		NaNToken:    nanToken,
		Policy:      policy,
		Placeholder: placeholder,
	}
}

// FormatRecord formats the channel columns of r. With PolicyPlaceholder it
// never fails and reports the number of replaced fields instead.
func (f Formatter) FormatRecord(r parsers.Record) (string, int, error) {
	columns, ok := r.Columns(FirstChannelColumn, ChannelCount)
	if !ok {
		fieldErr := &MalformedFieldError{
			Column: len(r.Fields),
			Err:    fmt.Errorf("record has %d columns, want at least %d", len(r.Fields), FirstChannelColumn+ChannelCount),
		}
		if f.Policy != PolicyPlaceholder {
			return "", 0, fieldErr
		}

		padded := 0
		columns = make([]string, ChannelCount)
		for i := range columns {
			if c := FirstChannelColumn + i; c < len(r.Fields) {
				columns[i] = r.Fields[c]
			} else {
				columns[i] = f.Placeholder
				padded++
			}
		}

		line, malformed, err := f.formatColumns(columns, FirstChannelColumn)
		return line, malformed + padded, err
	}

	return f.formatColumns(columns, FirstChannelColumn)
}

// FormatLine formats the given fields as one tab-separated line.
func (f Formatter) FormatLine(fields []string) (string, int, error) {
	return f.formatColumns(fields, 0)
}

func (f Formatter) formatColumns(fields []string, offset int) (string, int, error) {
	out := make([]string, len(fields))
	malformed := 0
	for i, field := range fields {
		value := strings.Trim(strings.TrimSpace(field), "\"")
		if value == f.NaNToken || (f.Policy == PolicyPlaceholder && value == f.Placeholder) {
			out[i] = value
			continue
		}

		number, err := strconv.ParseFloat(value, 64)
		if err != nil {
			if f.Policy != PolicyPlaceholder {
				return "", malformed, &MalformedFieldError{Column: offset + i, Value: value, Err: err}
			}

			malformed++
			out[i] = f.Placeholder
			continue
		}

		out[i] = strconv.FormatFloat(number, 'f', 6, 64)
	}

	return strings.Join(out, "\t"), malformed, nil
}

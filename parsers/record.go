package parsers

import "strings"

const (
	// Delimiter separates the columns of a raw datalogger line.
	Delimiter = ","

	timestampColumn = 0
)

// Record is one data line of a raw datalogger file split into its columns.
// Columns keep their original quoting.
type Record struct {
	Fields []string
}

func ParseRecord(line string) Record {
	return Record{
		Fields: strings.Split(strings.TrimRight(line, "\r\n"), Delimiter),
	}
}

// RawTimestamp returns the unquoted timestamp column.
func (r Record) RawTimestamp() string {
	if len(r.Fields) <= timestampColumn {
		return ""
	}

	return strings.Trim(strings.TrimSpace(r.Fields[timestampColumn]), "\"")
}

// Columns returns the columns in [from, from+count). ok is false when the
// record is too short.
func (r Record) Columns(from, count int) (columns []string, ok bool) {
	if from < 0 || count < 0 || from+count > len(r.Fields) {
		return nil, false
	}

	return r.Fields[from : from+count], true
}

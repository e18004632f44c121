package sources

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pbudner/halfhour/parsers"
)

const tailChunkSize = 1024

// Span is the time range covered by one raw file.
type Span struct {
	Path  string
	Start time.Time
	End   time.Time
}

func (s Span) Name() string {
	return filepath.Base(s.Path)
}

// ReadSpan reads the first record after the header and the last line of the
// file, without scanning the records in between.
func ReadSpan(path string, headerLines int, parser *parsers.TimestampParser) (Span, error) {
	fs, err := Open(path, headerLines)
	if err != nil {
		return Span{}, err
	}
	defer fs.Close()

	first, _ := fs.Peek()
	start, err := parser.Parse(first.RawTimestamp())
	if err != nil {
		return Span{}, err
	}

	stat, err := fs.file.Stat()
	if err != nil {
		return Span{}, err
	}

	line, err := lastLine(fs.file, stat.Size())
	if err != nil {
		return Span{}, fmt.Errorf("reading last line of %s: %w", path, err)
	}

	end, err := parser.Parse(parsers.ParseRecord(line).RawTimestamp())
	if err != nil {
		return Span{}, err
	}

	return Span{Path: path, Start: start, End: end}, nil
}

func lastLine(f *os.File, size int64) (string, error) {
	var buf []byte
	for offset := size; offset > 0; {
		n := int64(tailChunkSize)
		if offset < n {
			n = offset
		}
		offset -= n

		part := make([]byte, n)
		if _, err := f.ReadAt(part, offset); err != nil {
			return "", err
		}
		buf = append(part, buf...)

		trimmed := bytes.TrimRight(buf, "\r\n\t ")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return string(bytes.TrimRight(trimmed[i+1:], "\r")), nil
		}
		if offset == 0 {
			return string(trimmed), nil
		}
	}

	return "", nil
}

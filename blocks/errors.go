package blocks

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyBatch is returned when Write is called without records.
	ErrEmptyBatch = errors.New("batch holds no records")
)

// MalformedFieldError is returned when a channel value is neither numeric
// nor the not-a-number token.
type MalformedFieldError struct {
	Column int
	Value  string
	Err    error
}

func (e *MalformedFieldError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("column %d: malformed value %q", e.Column, e.Value)
	}

	return fmt.Sprintf("column %d: malformed value %q: %v", e.Column, e.Value, e.Err)
}

func (e *MalformedFieldError) Unwrap() error {
	return e.Err
}

// FilesystemError wraps a failure to inspect, create or write a block file.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

package storage

import "errors"

var (
	// ErrKeyNotFound is returned by Get when the key does not exist
	ErrKeyNotFound = errors.New("key not found")
)

package storage

// Storage is an ordered key-value store.
type Storage interface {
	Set(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Contains(key []byte) (bool, error)
	Find(prefix []byte) ([]KeyValue, error)
	CountPrefix(prefix []byte) (uint64, error)
	Close() error
}

type KeyValue struct {
	Key   []byte
	Value []byte
}

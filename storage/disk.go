package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"go.uber.org/zap"
)

type diskStorage struct {
	store *badger.DB
	log   *zap.SugaredLogger
}

// NewDiskStorage opens a badger database at path. An empty path keeps the
// database in memory.
func NewDiskStorage(path string) (*diskStorage, error) {
	log := zap.L().Sugar().With("service", "disk-storage")
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithLogger(newDiskLogger(log))
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database at %q: %w", path, err)
	}

	log.Debugw("opened disk storage", "path", path, "in-memory", path == "")
	return &diskStorage{
		store: db,
		log:   log,
	}, nil
}

func (s *diskStorage) Set(key []byte, value []byte) error {
	return s.store.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *diskStorage) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.store.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (s *diskStorage) Contains(key []byte) (bool, error) {
	err := s.store.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}

	return err == nil, err
}

func (s *diskStorage) Find(prefix []byte) ([]KeyValue, error) {
	result := make([]KeyValue, 0)
	err := s.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, KeyValue{Key: item.KeyCopy(nil), Value: value})
		}

		return nil
	})

	return result, err
}

func (s *diskStorage) CountPrefix(prefix []byte) (uint64, error) {
	counter := uint64(0)
	err := s.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			counter++
		}

		return nil
	})

	return counter, err
}

func (s *diskStorage) Close() error {
	return s.store.Close()
}

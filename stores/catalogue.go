package stores

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pbudner/halfhour/blocks"
	"github.com/pbudner/halfhour/storage"
	"github.com/pbudner/halfhour/storage/key"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

var (
	filePrefix         byte = 0x01
	contributionPrefix byte = 0x02
	runPrefix          byte = 0x03

	// ErrFileNotFound is returned when the catalogue holds no entry for a file
	ErrFileNotFound = errors.New("file is not in the catalogue")
)

// FileEntry is what the catalogue knows about one raw input file.
type FileEntry struct {
	Name        string    `msgpack:"name" json:"name"`
	Path        string    `msgpack:"path" json:"path"`
	Site        string    `msgpack:"site" json:"site"`
	Start       time.Time `msgpack:"start" json:"start"`
	End         time.Time `msgpack:"end" json:"end"`
	Records     int       `msgpack:"records" json:"records"`
	State       string    `msgpack:"state" json:"state"`
	Error       string    `msgpack:"error,omitempty" json:"error,omitempty"`
	Created     int       `msgpack:"created" json:"created"`
	Appended    int       `msgpack:"appended" json:"appended"`
	Skipped     int       `msgpack:"skipped" json:"skipped"`
	Duplicates  int       `msgpack:"duplicates" json:"duplicates"`
	Rejected    int       `msgpack:"rejected" json:"rejected"`
	Failed      int       `msgpack:"failed" json:"failed"`
	ProcessedAt time.Time `msgpack:"processed_at" json:"processed_at"`
	RunID       string    `msgpack:"run_id" json:"run_id"`
}

// HasSpan reports whether the entry carries a usable time range.
func (e FileEntry) HasSpan() bool {
	return !e.Start.IsZero() && !e.End.IsZero()
}

// RunEntry summarizes one invocation of the segmentation pipeline.
type RunEntry struct {
	ID       string    `msgpack:"id" json:"id"`
	Site     string    `msgpack:"site" json:"site"`
	Started  time.Time `msgpack:"started" json:"started"`
	Finished time.Time `msgpack:"finished" json:"finished"`
	Files    int       `msgpack:"files" json:"files"`
	Failed   int       `msgpack:"failed" json:"failed"`
	Records  int       `msgpack:"records" json:"records"`

	key []byte
}

// Catalogue keeps processed files, block contributions and run history in
// one storage.
type Catalogue struct {
	sync.RWMutex
	storage storage.Storage
	log     *zap.SugaredLogger
}

func NewCatalogue(s storage.Storage) *Catalogue {
	return &Catalogue{
		storage: s,
		log:     zap.L().Sugar().With("service", "catalogue"),
	}
}

func (c *Catalogue) PutFile(entry FileEntry) error {
	c.Lock()
	defer c.Unlock()

	b, err := msgpack.Marshal(&entry)
	if err != nil {
		return err
	}

	return c.storage.Set(storage.Prefixed([]byte{filePrefix}, []byte(entry.Name)), b)
}

func (c *Catalogue) GetFile(name string) (FileEntry, error) {
	c.RLock()
	defer c.RUnlock()

	var entry FileEntry
	v, err := c.storage.Get(storage.Prefixed([]byte{filePrefix}, []byte(name)))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return entry, ErrFileNotFound
	}
	if err != nil {
		return entry, err
	}

	err = msgpack.Unmarshal(v, &entry)
	return entry, err
}

// Files returns every catalogued file sorted by name.
func (c *Catalogue) Files() ([]FileEntry, error) {
	c.RLock()
	defer c.RUnlock()

	kvs, err := c.storage.Find([]byte{filePrefix})
	if err != nil {
		return nil, err
	}

	entries := make([]FileEntry, 0, len(kvs))
	for _, kv := range kvs {
		var entry FileEntry
		if err := msgpack.Unmarshal(kv.Value, &entry); err != nil {
			c.log.Errorw("skipping undecodable catalogue entry", "key", string(kv.Key[1:]), "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func contributionKey(contribution blocks.Contribution) []byte {
	lines := storage.Uint64ToBytes(uint64(contribution.Lines))
	first := storage.Uint64ToBytes(uint64(contribution.First.UnixNano()))
	return storage.Prefixed([]byte{contributionPrefix}, storage.Uint64ToBytes(xxhash.Sum64String(contribution.Block)), first, lines)
}

// HasContribution implements blocks.Ledger.
func (c *Catalogue) HasContribution(contribution blocks.Contribution) (bool, error) {
	c.RLock()
	defer c.RUnlock()
	return c.storage.Contains(contributionKey(contribution))
}

// RecordContribution implements blocks.Ledger.
func (c *Catalogue) RecordContribution(contribution blocks.Contribution) error {
	c.Lock()
	defer c.Unlock()
	return c.storage.Set(contributionKey(contribution), []byte(contribution.Block))
}

// Contributions counts the contributions recorded for block.
func (c *Catalogue) Contributions(block string) (uint64, error) {
	c.RLock()
	defer c.RUnlock()
	return c.storage.CountPrefix(storage.Prefixed([]byte{contributionPrefix}, storage.Uint64ToBytes(xxhash.Sum64String(block))))
}

// StartRun creates a run entry. It is stored once FinishRun is called.
func (c *Catalogue) StartRun(site string, started time.Time) (RunEntry, error) {
	k, id, err := key.New([]byte(site), started)
	if err != nil {
		return RunEntry{}, fmt.Errorf("generating run id: %w", err)
	}

	return RunEntry{
		ID:      id.String(),
		Site:    site,
		Started: started,
		key:     storage.Prefixed([]byte{runPrefix}, k),
	}, nil
}

func (c *Catalogue) FinishRun(run RunEntry) error {
	if run.key == nil {
		return fmt.Errorf("run %s was not started by this catalogue", run.ID)
	}

	c.Lock()
	defer c.Unlock()

	b, err := msgpack.Marshal(&run)
	if err != nil {
		return err
	}

	return c.storage.Set(run.key, b)
}

// Runs returns the runs of site, oldest first.
func (c *Catalogue) Runs(site string) ([]RunEntry, error) {
	c.RLock()
	defer c.RUnlock()

	prefix := storage.Prefixed([]byte{runPrefix}, key.Prefix([]byte(site)))
	kvs, err := c.storage.Find(prefix)
	if err != nil {
		return nil, err
	}

	runs := make([]RunEntry, 0, len(kvs))
	for _, kv := range kvs {
		var run RunEntry
		if err := msgpack.Unmarshal(kv.Value, &run); err != nil {
			return nil, err
		}
		run.key = kv.Key
		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool { return bytes.Compare(runs[i].key, runs[j].key) < 0 })
	return runs, nil
}

func (c *Catalogue) Close() error {
	c.Lock()
	defer c.Unlock()
	return c.storage.Close()
}

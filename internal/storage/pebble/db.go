package pebblestore

import (
	"context"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = pebble.ErrNotFound

// FsyncMode pins when committed writes reach the WAL on disk.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways syncs the WAL on every commit.
	FsyncModeAlways
	// FsyncModeInterval lets Pebble coalesce WAL syncs inside a small
	// group-commit window.
	FsyncModeInterval
	// FsyncModeNever leaves syncing to Pebble's own schedule.
	FsyncModeNever
)

// ParseFsyncMode maps a config string to an FsyncMode.
func ParseFsyncMode(s string) (FsyncMode, error) {
	switch s {
	case "", "always":
		return FsyncModeAlways, nil
	case "interval":
		return FsyncModeInterval, nil
	case "never":
		return FsyncModeNever, nil
	default:
		return FsyncModeUnspecified, errors.New("pebble: fsync mode must be always|interval|never")
	}
}

// Options configures Open.
type Options struct {
	// DataDir is the Pebble database directory.
	DataDir string
	// Fsync selects the durability policy.
	Fsync FsyncMode
	// FsyncInterval is the group-commit window under FsyncModeInterval.
	FsyncInterval time.Duration
}

// DB is the shared keyspace handle.
type DB struct {
	inner *pebble.DB
	sync  *pebble.WriteOptions
}

// Open creates or opens the keyspace under opts.DataDir.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}

	po := &pebble.Options{}
	writeOpts := pebble.NoSync
	switch opts.Fsync {
	case FsyncModeAlways:
		writeOpts = pebble.Sync
	case FsyncModeInterval:
		writeOpts = pebble.Sync
		window := opts.FsyncInterval
		if window <= 0 {
			window = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return window }
	case FsyncModeNever:
	default:
		// Unspecified: favor a small group-commit window over raw NoSync.
		writeOpts = pebble.Sync
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, err
	}
	return &DB{inner: inner, sync: writeOpts}, nil
}

// Close releases the keyspace.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// NewBatch starts an atomic multi-key update.
func (db *DB) NewBatch() *pebble.Batch {
	return db.inner.NewBatch()
}

// CommitBatch commits a batch under the configured durability policy.
func (db *DB) CommitBatch(ctx context.Context, b *pebble.Batch) error {
	if b == nil {
		return errors.New("pebble: nil batch")
	}
	return b.Commit(db.sync)
}

// write runs one mutation inside a throwaway batch so point writes and
// multi-key commits share a single durability path.
func (db *DB) write(fn func(b *pebble.Batch) error) error {
	b := db.inner.NewBatch()
	defer b.Close()
	if err := fn(b); err != nil {
		return err
	}
	return db.CommitBatch(context.Background(), b)
}

// Set durably binds key to value.
func (db *DB) Set(key, value []byte) error {
	return db.write(func(b *pebble.Batch) error { return b.Set(key, value, nil) })
}

// Delete durably removes key.
func (db *DB) Delete(key []byte) error {
	return db.write(func(b *pebble.Batch) error { return b.Delete(key, nil) })
}

// Get returns a copy of key's value, or ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	val, closer, err := db.inner.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// Has reports whether key is present.
func (db *DB) Has(key []byte) (bool, error) {
	_, closer, err := db.inner.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

// NewIter opens a raw iterator with the given bounds.
func (db *DB) NewIter(opts *pebble.IterOptions) (*pebble.Iterator, error) {
	return db.inner.NewIter(opts)
}

// PrefixIter opens an iterator over every key starting with prefix.
func (db *DB) PrefixIter(prefix []byte) (*pebble.Iterator, error) {
	return db.inner.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: PrefixUpperBound(prefix),
	})
}

// DeletePrefix removes every key starting with prefix in one commit.
func (db *DB) DeletePrefix(ctx context.Context, prefix []byte) error {
	b := db.inner.NewBatch()
	defer b.Close()
	if err := b.DeleteRange(prefix, PrefixUpperBound(prefix), nil); err != nil {
		return err
	}
	return db.CommitBatch(ctx, b)
}

// PrefixUpperBound returns the smallest key beyond every key carrying
// prefix, or nil when no such bound exists (an all-0xff prefix).
func PrefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for pos := len(upper) - 1; pos >= 0; pos-- {
		if upper[pos] < 0xff {
			upper[pos]++
			return upper[:pos+1]
		}
	}
	return nil
}

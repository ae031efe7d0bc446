// Package driver defines the narrow ABI between the tdb binding layer and the
// storage engines that implement it. Engines register themselves by name, the
// way database/sql drivers do, and the root package resolves them at open time.
//
// The interfaces here are intentionally dumb: raw byte keys and values in,
// coded errors out. Anything smarter (store modes, transactions, seqnums,
// use-after-close guards) lives upstairs in the binding layer.
package driver

import "io/fs"

// Config carries the open-time options an engine may care about. Flags the
// engine cannot honor are advisory; the engine is authoritative on what it
// actually enforces.
type Config struct {
	// ReadOnly is enforced by the binding layer before calls reach the
	// engine, but is passed down for engines that can open cheaper in
	// read-only mode.
	ReadOnly bool
	// NoLock asks the engine to skip file locking if it can.
	NoLock bool
	// NoSync asks the engine not to fsync after every write.
	NoSync bool
	// FileMode is used when the engine creates files or directories.
	// Zero means the engine's default.
	FileMode fs.FileMode
}

// Driver opens connections to databases of one engine type.
type Driver interface {
	// Name returns the registry name of the engine, e.g. "bitcask".
	Name() string
	// Open opens or creates the database at path. An empty path is only
	// meaningful for engines without backing files.
	Open(path string, cfg Config) (Conn, error)
}

// Conn is one open database. A Conn is not required to be safe for
// concurrent use; the binding layer documents single-handle discipline and
// engines may rely on it.
type Conn interface {
	// Store sets key to value, inserting or overwriting.
	Store(key, value []byte) error
	// Fetch returns the value for key. A missing key is reported as an
	// *Error with CodeNoExist, never as (nil, nil).
	Fetch(key []byte) ([]byte, error)
	// Delete removes key. Deleting a missing key is an *Error with
	// CodeNoExist.
	Delete(key []byte) error
	// Has reports whether key is present.
	Has(key []byte) (bool, error)
	// Keys returns a cursor over all keys in engine-defined order. The
	// cursor is invalidated by mutation of the same Conn.
	Keys() (Iterator, error)
	// Wipe removes every record.
	Wipe() error
	// Sync flushes buffered writes to stable storage, if any.
	Sync() error
	// Len returns the number of records.
	Len() (int, error)
	// Close releases the engine resources. The binding layer guarantees
	// Close is called at most once per Conn.
	Close() error
}

// Iterator is a cursor over keys. Release must be safe to call at any point,
// including after exhaustion.
type Iterator interface {
	// Next advances the cursor, returning false at the end or on error.
	Next() bool
	// Key returns the key at the current position. The slice is only
	// valid until the next call to Next.
	Key() []byte
	// Err returns the first error hit while iterating, if any.
	Err() error
	// Release frees cursor resources.
	Release()
}

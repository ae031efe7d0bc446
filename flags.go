package tdb

// Flag is a bitmask of open-time options. Combinations are passed through to
// the engine, which is authoritative on what it actually honors.
type Flag uint32

const (
	// ReadOnly opens the database for reading; mutations fail with
	// [ErrReadOnly].
	ReadOnly Flag = 1 << iota
	// NoLock asks the engine to skip its own file locking.
	NoLock
	// NoSync asks the engine not to flush to disk after every write.
	NoSync
	// MustExist fails the open instead of creating a missing database.
	MustExist
	// ClearOnOpen wipes all records right after a successful open.
	ClearOnOpen
	// SeqNum maintains a sequence number, incremented on every
	// successful mutation of the handle.
	SeqNum
	// AllowNesting permits nested transactions. Without it a nested
	// TransactionStart fails with [ErrNesting].
	AllowNesting
	// InMemory forces an in-memory database regardless of path.
	InMemory
)

// Has reports whether all bits of o are set in f.
func (f Flag) Has(o Flag) bool { return f&o == o }

// StoreMode selects the overwrite semantics of [DB.Store].
type StoreMode int

const (
	// Replace inserts or overwrites unconditionally. It is the zero
	// value and the default.
	Replace StoreMode = iota
	// Insert stores only if the key is absent, failing with
	// [ErrKeyExists] otherwise.
	Insert
	// Modify overwrites only if the key is present, failing with
	// [ErrNoExist] otherwise.
	Modify
)

func (m StoreMode) String() string {
	switch m {
	case Replace:
		return "replace"
	case Insert:
		return "insert"
	case Modify:
		return "modify"
	default:
		return "invalid"
	}
}

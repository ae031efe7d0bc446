// Package tdb implements a trivial database: a small handle-based key/value
// store API over pluggable storage engines. Keys and values are opaque byte
// sequences. The root package owns open/close lifetime, store-mode and
// read-only semantics, sequence numbers and transactions; the engines under
// it own the bytes on disk.
//
// A [DB] handle is not safe for concurrent use from multiple goroutines
// without external synchronization. Engines enforce their own inter-process
// locking depending on flags; the binding layer adds none of its own.
package tdb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"git.tcp.direct/tcp.direct/tdb/driver"
	"git.tcp.direct/tcp.direct/tdb/metadata"

	// the in-memory engine is always available; file engines are opt-in
	// imports the way database/sql drivers are.
	_ "git.tcp.direct/tcp.direct/tdb/memdb"
)

const (
	// DefaultEngine is used when opening a fresh database with no
	// explicit [WithEngine] option.
	DefaultEngine = "bitcask"
	// MemoryName is the reported name of in-memory databases.
	MemoryName = ":memory:"

	memoryEngine = "memory"
	dataDirName  = "data"
)

// DB is an open database handle. It owns one engine connection and releases
// it on [DB.Close]; any operation after Close fails with [ErrUseAfterClose].
type DB struct {
	conn   driver.Conn
	cfg    driver.Config
	path   string
	engine string
	flags  Flag
	closed atomic.Bool
	seq    atomic.Uint64
	txns   []*txnFrame
}

// Option adjusts open behavior.
type Option func(*openConfig)

type openConfig struct {
	engine string
}

// WithEngine selects the storage engine by registry name. Opening an
// existing database with a different engine than it was created with fails
// with [ErrInvalid].
func WithEngine(name string) Option {
	return func(oc *openConfig) {
		oc.engine = name
	}
}

// Open opens or creates the database rooted at path. An empty path (or the
// [InMemory] flag) yields a process-local in-memory database with no backing
// files. mode is used for created directories; zero means 0700.
//
// For file-backed databases the engine is resolved in order: the
// [WithEngine] option, the tdb.json sidecar of an existing database, then
// [DefaultEngine]. The chosen engine must have been registered by importing
// its package.
func Open(path string, flags Flag, mode fs.FileMode, opts ...Option) (*DB, error) {
	var oc openConfig
	for _, opt := range opts {
		opt(&oc)
	}
	if mode == 0 {
		mode = 0700
	}
	cfg := driver.Config{
		ReadOnly: flags.Has(ReadOnly),
		NoLock:   flags.Has(NoLock),
		NoSync:   flags.Has(NoSync),
		FileMode: mode,
	}
	if path == "" || flags.Has(InMemory) {
		return openMemory(flags, cfg)
	}

	engine := oc.engine
	var meta *metadata.File
	mkdir, sidecar := false, false
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if flags.Has(MustExist) {
			return nil, codeErr("open", path, CodeNoExist)
		}
		if flags.Has(ReadOnly) {
			return nil, codeErr("open", path, CodeReadOnly)
		}
		if engine == "" {
			engine = DefaultEngine
		}
		mkdir, sidecar = true, true
	case err != nil:
		return nil, &Error{Op: "open", Path: path, Code: CodeIO, Err: err}
	default:
		meta, err = metadata.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// directory exists but carries no sidecar; adopt it
			if engine == "" {
				engine = DefaultEngine
			}
			sidecar = !flags.Has(ReadOnly)
		case err != nil:
			return nil, &Error{Op: "open", Path: path, Code: CodeCorrupt, Err: err}
		default:
			if engine == "" {
				engine = meta.Engine
			} else if engine != meta.Engine {
				return nil, &Error{
					Op: "open", Path: path, Code: CodeInvalid,
					Err: fmt.Errorf("database was created with engine %q, not %q", meta.Engine, engine),
				}
			}
		}
	}

	drv := driver.Get(engine)
	if drv == nil {
		return nil, &Error{
			Op: "open", Path: path, Code: CodeInvalid,
			Err: fmt.Errorf("engine %q is not registered (missing import?)", engine),
		}
	}
	if mkdir {
		if err = os.MkdirAll(path, mode); err != nil {
			return nil, &Error{Op: "open", Path: path, Code: CodeIO, Err: err}
		}
	}
	if sidecar {
		if meta, err = metadata.Create(path, engine, uint32(flags)); err != nil {
			return nil, &Error{Op: "open", Path: path, Code: CodeIO, Err: err}
		}
	}
	conn, err := drv.Open(filepath.Join(path, dataDirName), cfg)
	if err != nil {
		return nil, opErr("open", path, err)
	}
	db := &DB{conn: conn, cfg: cfg, path: path, engine: engine, flags: flags}
	if flags.Has(ClearOnOpen) && !flags.Has(ReadOnly) {
		if err = conn.Wipe(); err != nil {
			_ = conn.Close()
			return nil, opErr("open", path, err)
		}
	}
	if meta != nil && !flags.Has(ReadOnly) {
		meta.Ping()
		_ = meta.Sync()
	}
	return db, nil
}

// Memory opens a fresh in-memory database. Equivalent to Open with an empty
// path.
func Memory(flags Flag) (*DB, error) {
	return Open("", flags|InMemory, 0)
}

func openMemory(flags Flag, cfg driver.Config) (*DB, error) {
	drv := driver.Get(memoryEngine)
	if drv == nil {
		return nil, codeErr("open", MemoryName, CodeInvalid)
	}
	conn, err := drv.Open("", cfg)
	if err != nil {
		return nil, opErr("open", MemoryName, err)
	}
	return &DB{conn: conn, cfg: cfg, path: MemoryName, engine: memoryEngine, flags: flags}, nil
}

// guard fails the operation once the handle has been closed.
func (db *DB) guard(op string) error {
	if db.closed.Load() {
		return codeErr(op, db.path, CodeUseAfterClose)
	}
	return nil
}

func (db *DB) guardWrite(op string) error {
	if err := db.guard(op); err != nil {
		return err
	}
	if db.flags.Has(ReadOnly) {
		return codeErr(op, db.path, CodeReadOnly)
	}
	return nil
}

// bump advances the sequence number on successful mutations when the SeqNum
// flag is set.
func (db *DB) bump() {
	if db.flags.Has(SeqNum) {
		db.seq.Add(1)
	}
}

// Store sets key to value under the given [StoreMode]. Insert fails with
// [ErrKeyExists] if the key is present; Modify fails with [ErrNoExist] if it
// is not.
func (db *DB) Store(key, value []byte, mode StoreMode) error {
	if err := db.guardWrite("store"); err != nil {
		return err
	}
	if len(key) == 0 {
		return codeErr("store", db.path, CodeInvalid)
	}
	switch mode {
	case Replace:
	case Insert:
		ok, err := db.lookupHas(key)
		if err != nil {
			return opErr("store", db.path, err)
		}
		if ok {
			return codeErr("store", db.path, CodeExists)
		}
	case Modify:
		ok, err := db.lookupHas(key)
		if err != nil {
			return opErr("store", db.path, err)
		}
		if !ok {
			return codeErr("store", db.path, CodeNoExist)
		}
	default:
		return codeErr("store", db.path, CodeInvalid)
	}
	if f := db.topFrame(); f != nil {
		f.put(key, value)
	} else if err := db.conn.Store(key, value); err != nil {
		return opErr("store", db.path, err)
	}
	db.bump()
	return nil
}

// Fetch returns the value stored for key. A missing key is (nil, false, nil);
// the error return is reserved for engine failures.
func (db *DB) Fetch(key []byte) ([]byte, bool, error) {
	if err := db.guard("fetch"); err != nil {
		return nil, false, err
	}
	if len(key) == 0 {
		return nil, false, codeErr("fetch", db.path, CodeInvalid)
	}
	val, ok, err := db.lookupFetch(key)
	if err != nil {
		return nil, false, opErr("fetch", db.path, err)
	}
	return val, ok, nil
}

// Exists reports whether key is present, without fetching the value.
func (db *DB) Exists(key []byte) (bool, error) {
	if err := db.guard("exists"); err != nil {
		return false, err
	}
	if len(key) == 0 {
		return false, codeErr("exists", db.path, CodeInvalid)
	}
	ok, err := db.lookupHas(key)
	if err != nil {
		return false, opErr("exists", db.path, err)
	}
	return ok, nil
}

// Delete removes key. Deleting a missing key fails with [ErrNoExist], which
// callers can tell apart from engine failures via [errors.Is].
func (db *DB) Delete(key []byte) error {
	if err := db.guardWrite("delete"); err != nil {
		return err
	}
	if len(key) == 0 {
		return codeErr("delete", db.path, CodeInvalid)
	}
	if f := db.topFrame(); f != nil {
		ok, err := db.lookupHas(key)
		if err != nil {
			return opErr("delete", db.path, err)
		}
		if !ok {
			return codeErr("delete", db.path, CodeNoExist)
		}
		f.remove(key)
	} else if err := db.conn.Delete(key); err != nil {
		return opErr("delete", db.path, err)
	}
	db.bump()
	return nil
}

// Append appends value to the record stored at key, creating the record if
// it does not exist.
func (db *DB) Append(key, value []byte) error {
	if err := db.guardWrite("append"); err != nil {
		return err
	}
	if len(key) == 0 {
		return codeErr("append", db.path, CodeInvalid)
	}
	old, ok, err := db.lookupFetch(key)
	if err != nil {
		return opErr("append", db.path, err)
	}
	var joined []byte
	if ok {
		joined = append(append(make([]byte, 0, len(old)+len(value)), old...), value...)
	} else {
		joined = append([]byte(nil), value...)
	}
	if f := db.topFrame(); f != nil {
		f.put(key, joined)
	} else if err = db.conn.Store(key, joined); err != nil {
		return opErr("append", db.path, err)
	}
	db.bump()
	return nil
}

// Wipe removes every record in the database.
func (db *DB) Wipe() error {
	if err := db.guardWrite("wipe"); err != nil {
		return err
	}
	if f := db.topFrame(); f != nil {
		f.wipe()
	} else if err := db.conn.Wipe(); err != nil {
		return opErr("wipe", db.path, err)
	}
	db.bump()
	return nil
}

// Sync flushes buffered writes to stable storage. A no-op for in-memory
// databases.
func (db *DB) Sync() error {
	if err := db.guard("sync"); err != nil {
		return err
	}
	if err := db.conn.Sync(); err != nil {
		return opErr("sync", db.path, err)
	}
	return nil
}

// Len returns the number of records visible through the handle, including
// staged transaction state.
func (db *DB) Len() (int, error) {
	if err := db.guard("len"); err != nil {
		return 0, err
	}
	if len(db.txns) == 0 {
		n, err := db.conn.Len()
		if err != nil {
			return 0, opErr("len", db.path, err)
		}
		return n, nil
	}
	keys, err := db.mergedKeys()
	if err != nil {
		return 0, opErr("len", db.path, err)
	}
	return len(keys), nil
}

// Name returns the database path, or ":memory:" for in-memory databases.
func (db *DB) Name() string { return db.path }

// Engine returns the registry name of the engine backing the handle.
func (db *DB) Engine() string { return db.engine }

// Flags returns the flags the handle was opened with.
func (db *DB) Flags() Flag { return db.flags }

// Seqnum returns the sequence number. It is zero unless the handle was
// opened with the [SeqNum] flag.
func (db *DB) Seqnum() uint64 { return db.seq.Load() }

// Reopen closes and reopens the engine connection, keeping the handle valid.
// Fails on in-memory databases and inside a transaction.
func (db *DB) Reopen() error {
	if err := db.guard("reopen"); err != nil {
		return err
	}
	if db.engine == memoryEngine {
		return codeErr("reopen", db.path, CodeInvalid)
	}
	if len(db.txns) > 0 {
		return codeErr("reopen", db.path, CodeInvalid)
	}
	if err := db.conn.Close(); err != nil {
		db.closed.Store(true)
		return opErr("reopen", db.path, err)
	}
	conn, err := driver.Get(db.engine).Open(filepath.Join(db.path, dataDirName), db.cfg)
	if err != nil {
		db.closed.Store(true)
		return opErr("reopen", db.path, err)
	}
	db.conn = conn
	return nil
}

// Close releases the engine resources held by the handle. Close is not
// idempotent: closing an already-closed handle fails with
// [ErrUseAfterClose], the same as every other operation. Staged transaction
// state, if any, is discarded.
func (db *DB) Close() error {
	if db.closed.Swap(true) {
		return codeErr("close", db.path, CodeUseAfterClose)
	}
	db.txns = nil
	if err := db.conn.Close(); err != nil {
		return opErr("close", db.path, err)
	}
	return nil
}

// lookupFetch reads through staged transaction frames before hitting the
// engine. Engine NoExist is normalized to plain absence here; everything
// else propagates.
func (db *DB) lookupFetch(key []byte) ([]byte, bool, error) {
	for i := len(db.txns) - 1; i >= 0; i-- {
		f := db.txns[i]
		if op, ok := f.pending[string(key)]; ok {
			if op.del {
				return nil, false, nil
			}
			return op.val, true, nil
		}
		if f.wiped {
			return nil, false, nil
		}
	}
	val, err := db.conn.Fetch(key)
	if err != nil {
		if driver.CodeOf(err) == driver.CodeNoExist {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (db *DB) lookupHas(key []byte) (bool, error) {
	for i := len(db.txns) - 1; i >= 0; i-- {
		f := db.txns[i]
		if op, ok := f.pending[string(key)]; ok {
			return !op.del, nil
		}
		if f.wiped {
			return false, nil
		}
	}
	return db.conn.Has(key)
}

// mergedKeys materializes the key set visible through the transaction stack.
func (db *DB) mergedKeys() ([][]byte, error) {
	decided := make(map[string]bool)
	wiped := false
	for i := len(db.txns) - 1; i >= 0; i-- {
		f := db.txns[i]
		for k, op := range f.pending {
			if _, seen := decided[k]; !seen {
				decided[k] = !op.del
			}
		}
		if f.wiped {
			wiped = true
			break
		}
	}
	out := make([][]byte, 0, len(decided))
	if !wiped {
		it, err := db.conn.Keys()
		if err != nil {
			return nil, err
		}
		for it.Next() {
			k := string(it.Key())
			if _, seen := decided[k]; !seen {
				out = append(out, []byte(k))
			}
		}
		err = it.Err()
		it.Release()
		if err != nil {
			return nil, err
		}
	}
	for k, present := range decided {
		if present {
			out = append(out, []byte(k))
		}
	}
	return out, nil
}

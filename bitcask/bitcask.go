// Package bitcask is the default file-backed engine, wrapping the bitcask
// log-structured store. One tdb database maps to one bitcask datadir.
package bitcask

import (
	"errors"

	"git.tcp.direct/Mirrors/bitcask-mirror"

	"git.tcp.direct/tcp.direct/tdb/driver"
)

// EngineName is the registry name of this engine.
const EngineName = "bitcask"

var defaultOptions []bitcask.Option

// SetDefaultOptions sets bitcask options applied to every database opened
// after the call. Note that bitcask caps key size at 64 bytes by default;
// raise it here if your keys are bigger.
func SetDefaultOptions(opts ...bitcask.Option) {
	defaultOptions = append(defaultOptions, opts...)
}

// WithMaxKeySize is a shim for bitcask's WithMaxKeySize option.
func WithMaxKeySize(size uint32) bitcask.Option {
	return bitcask.WithMaxKeySize(size)
}

// WithMaxValueSize is a shim for bitcask's WithMaxValueSize option.
func WithMaxValueSize(size uint64) bitcask.Option {
	return bitcask.WithMaxValueSize(size)
}

// WithMaxDatafileSize is a shim for bitcask's WithMaxDatafileSize option.
func WithMaxDatafileSize(size int) bitcask.Option {
	return bitcask.WithMaxDatafileSize(size)
}

type bitcaskDriver struct{}

func (bitcaskDriver) Name() string { return EngineName }

func (bitcaskDriver) Open(path string, cfg driver.Config) (driver.Conn, error) {
	opts := append([]bitcask.Option{bitcask.WithSync(!cfg.NoSync)}, defaultOptions...)
	b, err := bitcask.Open(path, opts...)
	if err != nil {
		return nil, mapErr(err)
	}
	return &Conn{b: b}, nil
}

// Conn is one open bitcask datadir.
type Conn struct {
	b *bitcask.Bitcask
}

// Backend returns the underlying bitcask instance.
func (c *Conn) Backend() interface{} { return c.b }

func (c *Conn) Store(key, value []byte) error {
	return mapErr(c.b.Put(key, value))
}

func (c *Conn) Fetch(key []byte) ([]byte, error) {
	val, err := c.b.Get(key)
	if err != nil {
		return nil, mapErr(err)
	}
	return val, nil
}

func (c *Conn) Delete(key []byte) error {
	if !c.b.Has(key) {
		return driver.Errf(driver.CodeNoExist, "key %q not found", key)
	}
	return mapErr(c.b.Delete(key))
}

func (c *Conn) Has(key []byte) (bool, error) {
	return c.b.Has(key), nil
}

// Keys folds the keyspace into a snapshot up front; bitcask's own channel
// iterator can't be abandoned without draining it.
func (c *Conn) Keys() (driver.Iterator, error) {
	var snap [][]byte
	err := c.b.Fold(func(key []byte) error {
		snap = append(snap, append([]byte(nil), key...))
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return &keyIter{keys: snap, pos: -1}, nil
}

func (c *Conn) Wipe() error {
	return mapErr(c.b.DeleteAll())
}

func (c *Conn) Sync() error {
	return mapErr(c.b.Sync())
}

func (c *Conn) Len() (int, error) {
	return c.b.Len(), nil
}

func (c *Conn) Close() error {
	return mapErr(c.b.Close())
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, bitcask.ErrKeyNotFound):
		return driver.Wrap(driver.CodeNoExist, err)
	case errors.Is(err, bitcask.ErrEmptyKey),
		errors.Is(err, bitcask.ErrKeyTooLarge),
		errors.Is(err, bitcask.ErrValueTooLarge):
		return driver.Wrap(driver.CodeInvalid, err)
	case errors.Is(err, bitcask.ErrDatabaseLocked):
		return driver.Wrap(driver.CodeLock, err)
	case errors.Is(err, bitcask.ErrChecksumFailed):
		return driver.Wrap(driver.CodeCorrupt, err)
	default:
		return driver.Wrap(driver.CodeIO, err)
	}
}

type keyIter struct {
	keys [][]byte
	pos  int
}

func (it *keyIter) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *keyIter) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	return it.keys[it.pos]
}

func (it *keyIter) Err() error { return nil }

func (it *keyIter) Release() { it.keys = nil }

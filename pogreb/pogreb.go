// Package pogreb is an alternate file-backed engine over the pogreb
// hash-table store. Compared to bitcask it trades startup cost for no key
// size cap; pick it with tdb.WithEngine("pogreb").
package pogreb

import (
	"time"

	"github.com/akrylysov/pogreb"

	"git.tcp.direct/tcp.direct/tdb/driver"
)

// EngineName is the registry name of this engine.
const EngineName = "pogreb"

type pogrebDriver struct{}

func (pogrebDriver) Name() string { return EngineName }

func (pogrebDriver) Open(path string, cfg driver.Config) (driver.Conn, error) {
	opts := &pogreb.Options{
		// sync after every write unless asked not to
		BackgroundSyncInterval: -1,
	}
	if cfg.NoSync {
		opts.BackgroundSyncInterval = 30 * time.Second
	}
	db, err := pogreb.Open(path, opts)
	if err != nil {
		return nil, driver.Wrap(driver.CodeIO, err)
	}
	return &Conn{db: db}, nil
}

// Conn is one open pogreb datadir.
type Conn struct {
	db *pogreb.DB
}

// Backend returns the underlying pogreb instance.
func (c *Conn) Backend() interface{} { return c.db }

func (c *Conn) Store(key, value []byte) error {
	if err := c.db.Put(key, value); err != nil {
		return driver.Wrap(driver.CodeIO, err)
	}
	return nil
}

// Fetch regularizes pogreb's habit of returning (nil, nil) for missing keys
// into a coded NoExist error.
func (c *Conn) Fetch(key []byte) ([]byte, error) {
	val, err := c.db.Get(key)
	if err != nil {
		return nil, driver.Wrap(driver.CodeIO, err)
	}
	if val == nil {
		return nil, driver.Errf(driver.CodeNoExist, "key %q not found", key)
	}
	return val, nil
}

// Delete checks presence first; pogreb's Delete of a missing key is a
// silent no-op.
func (c *Conn) Delete(key []byte) error {
	ok, err := c.db.Has(key)
	if err != nil {
		return driver.Wrap(driver.CodeIO, err)
	}
	if !ok {
		return driver.Errf(driver.CodeNoExist, "key %q not found", key)
	}
	if err = c.db.Delete(key); err != nil {
		return driver.Wrap(driver.CodeIO, err)
	}
	return nil
}

func (c *Conn) Has(key []byte) (bool, error) {
	ok, err := c.db.Has(key)
	if err != nil {
		return false, driver.Wrap(driver.CodeIO, err)
	}
	return ok, nil
}

// Keys snapshots the keyspace so the cursor survives concurrent reads and
// abandonment.
func (c *Conn) Keys() (driver.Iterator, error) {
	snap := make([][]byte, 0, c.db.Count())
	items := c.db.Items()
	for {
		key, _, err := items.Next()
		if err == pogreb.ErrIterationDone {
			break
		}
		if err != nil {
			return nil, driver.Wrap(driver.CodeIO, err)
		}
		snap = append(snap, append([]byte(nil), key...))
	}
	return &keyIter{keys: snap, pos: -1}, nil
}

// Wipe deletes record by record; pogreb has no bulk truncate.
func (c *Conn) Wipe() error {
	it, err := c.Keys()
	if err != nil {
		return err
	}
	defer it.Release()
	for it.Next() {
		if err = c.db.Delete(it.Key()); err != nil {
			return driver.Wrap(driver.CodeIO, err)
		}
	}
	return nil
}

func (c *Conn) Sync() error {
	if err := c.db.Sync(); err != nil {
		return driver.Wrap(driver.CodeIO, err)
	}
	return nil
}

func (c *Conn) Len() (int, error) {
	return int(c.db.Count()), nil
}

func (c *Conn) Close() error {
	if err := c.db.Close(); err != nil {
		return driver.Wrap(driver.CodeIO, err)
	}
	return nil
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

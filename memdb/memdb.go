// Package memdb is the in-memory engine backing ":memory:" databases. It
// keeps records in a concurrent map with no persistence; Sync is a no-op and
// Close drops everything. Registered as "memory" and always available, since
// the root package imports it.
package memdb

import (
	"github.com/puzpuzpuz/xsync/v3"

	"git.tcp.direct/tcp.direct/tdb/driver"
)

// EngineName is the registry name of this engine.
const EngineName = "memory"

type memDriver struct{}

func (memDriver) Name() string { return EngineName }

func (memDriver) Open(_ string, _ driver.Config) (driver.Conn, error) {
	return &Conn{m: xsync.NewMapOf[string, []byte]()}, nil
}

// Conn is one in-memory database. Records live only as long as the Conn.
type Conn struct {
	m *xsync.MapOf[string, []byte]
}

func (c *Conn) Store(key, value []byte) error {
	c.m.Store(string(key), append([]byte(nil), value...))
	return nil
}

func (c *Conn) Fetch(key []byte) ([]byte, error) {
	val, ok := c.m.Load(string(key))
	if !ok {
		return nil, driver.Errf(driver.CodeNoExist, "key %q not found", key)
	}
	// hand out a copy so callers can't mutate the stored record
	return append([]byte(nil), val...), nil
}

func (c *Conn) Delete(key []byte) error {
	if _, ok := c.m.LoadAndDelete(string(key)); !ok {
		return driver.Errf(driver.CodeNoExist, "key %q not found", key)
	}
	return nil
}

func (c *Conn) Has(key []byte) (bool, error) {
	_, ok := c.m.Load(string(key))
	return ok, nil
}

// Keys snapshots the key set; the cursor is unaffected by later mutation.
func (c *Conn) Keys() (driver.Iterator, error) {
	snap := make([][]byte, 0, c.m.Size())
	c.m.Range(func(k string, _ []byte) bool {
		snap = append(snap, []byte(k))
		return true
	})
	return &keyIter{keys: snap, pos: -1}, nil
}

func (c *Conn) Wipe() error {
	c.m.Clear()
	return nil
}

func (c *Conn) Sync() error { return nil }

func (c *Conn) Len() (int, error) { return c.m.Size(), nil }

func (c *Conn) Close() error {
	c.m.Clear()
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

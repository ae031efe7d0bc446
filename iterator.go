package tdb

import "git.tcp.direct/tcp.direct/tdb/driver"

// Keys is a cursor over the keys of a database, in engine-defined order.
// The order is stable for a given engine but carries no meaning; it is not
// sorted. Mutating the database while a cursor is live is forbidden and has
// engine-defined consequences; the binding layer does not police it.
type Keys struct {
	it   driver.Iterator
	snap [][]byte
	pos  int
	key  []byte
	err  error
}

// Keys returns a cursor over all keys visible through the handle. Under an
// active transaction the merged key set is materialized up front; otherwise
// the engine cursor is consumed lazily.
func (db *DB) Keys() (*Keys, error) {
	if err := db.guard("keys"); err != nil {
		return nil, err
	}
	if len(db.txns) > 0 {
		snap, err := db.mergedKeys()
		if err != nil {
			return nil, opErr("keys", db.path, err)
		}
		return &Keys{snap: snap, pos: -1}, nil
	}
	it, err := db.conn.Keys()
	if err != nil {
		return nil, opErr("keys", db.path, err)
	}
	return &Keys{it: it, pos: -1}, nil
}

// Next advances the cursor. It returns false once the keys are exhausted or
// an error occurred; check [Keys.Err] to tell the two apart.
func (k *Keys) Next() bool {
	if k.err != nil {
		return false
	}
	if k.it != nil {
		if !k.it.Next() {
			k.err = k.it.Err()
			k.key = nil
			return false
		}
		k.key = k.it.Key()
		return true
	}
	k.pos++
	if k.pos >= len(k.snap) {
		k.key = nil
		return false
	}
	k.key = k.snap[k.pos]
	return true
}

// Key returns the key at the current position. The slice is only valid
// until the next call to Next; copy it to retain it.
func (k *Keys) Key() []byte { return k.key }

// Err returns the first engine error hit while iterating, if any.
func (k *Keys) Err() error { return k.err }

// Release frees cursor resources. Safe to call more than once.
func (k *Keys) Release() {
	if k.it != nil {
		k.it.Release()
		k.it = nil
	}
	k.snap = nil
	k.key = nil
}

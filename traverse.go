package tdb

import "bytes"

// Traverse walks every record, calling fn with the key and value. A non-nil
// error from fn stops the walk and is returned verbatim. Keys whose record
// vanishes between cursor and fetch are skipped. fn must not mutate the
// database.
func (db *DB) Traverse(fn func(key, value []byte) error) error {
	if err := db.guard("traverse"); err != nil {
		return err
	}
	it, err := db.Keys()
	if err != nil {
		return err
	}
	defer it.Release()
	for it.Next() {
		key := append([]byte(nil), it.Key()...)
		val, ok, ferr := db.Fetch(key)
		if ferr != nil {
			return ferr
		}
		if !ok {
			continue
		}
		if err = fn(key, val); err != nil {
			return err
		}
	}
	if err = it.Err(); err != nil {
		return opErr("traverse", db.path, err)
	}
	return nil
}

// PrefixScan returns all keys beginning with prefix, in engine-defined
// order. An empty prefix returns every key.
func (db *DB) PrefixScan(prefix []byte) ([][]byte, error) {
	if err := db.guard("prefix_scan"); err != nil {
		return nil, err
	}
	it, err := db.Keys()
	if err != nil {
		return nil, err
	}
	defer it.Release()
	var out [][]byte
	for it.Next() {
		if bytes.HasPrefix(it.Key(), prefix) {
			out = append(out, append([]byte(nil), it.Key()...))
		}
	}
	if err = it.Err(); err != nil {
		return nil, opErr("prefix_scan", db.path, err)
	}
	return out, nil
}

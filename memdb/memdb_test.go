package memdb

import (
	"bytes"
	"testing"

	"git.tcp.direct/kayos/common/entropy"

	"git.tcp.direct/tcp.direct/tdb/driver"
)

func newConn(t *testing.T) driver.Conn {
	t.Helper()
	c, err := memDriver{}.Open("", driver.Config{})
	if err != nil {
		t.Fatalf("[FAIL] Open: %s", err)
	}
	return c
}

func TestConnRoundtrip(t *testing.T) {
	c := newConn(t)
	key := []byte(entropy.RandStr(16))
	value := []byte(entropy.RandStr(55))
	if err := c.Store(key, value); err != nil {
		t.Fatalf("[FAIL] Store: %s", err)
	}
	got, err := c.Fetch(key)
	if err != nil {
		t.Fatalf("[FAIL] Fetch: %s", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("[FAIL] Fetch returned %s, wanted %s", got, value)
	}

	// the stored copy must not alias the caller's buffer
	value[0] ^= 0xff
	got, err = c.Fetch(key)
	if err != nil {
		t.Fatalf("[FAIL] Fetch: %s", err)
	}
	if got[0] == value[0] {
		t.Error("[FAIL] stored value aliases caller buffer")
	}
}

func TestConnMissing(t *testing.T) {
	c := newConn(t)
	key := []byte(entropy.RandStr(16))
	if _, err := c.Fetch(key); driver.CodeOf(err) != driver.CodeNoExist {
		t.Errorf("[FAIL] Fetch of missing key: wanted CodeNoExist, got %v", err)
	}
	if err := c.Delete(key); driver.CodeOf(err) != driver.CodeNoExist {
		t.Errorf("[FAIL] Delete of missing key: wanted CodeNoExist, got %v", err)
	}
	ok, err := c.Has(key)
	if err != nil || ok {
		t.Errorf("[FAIL] Has of missing key: ok=%t err=%v", ok, err)
	}
}

func TestConnKeysSnapshot(t *testing.T) {
	c := newConn(t)
	for i := 0; i < 10; i++ {
		if err := c.Store([]byte(entropy.RandStr(16)), []byte("v")); err != nil {
			t.Fatalf("[FAIL] Store: %s", err)
		}
	}
	it, err := c.Keys()
	if err != nil {
		t.Fatalf("[FAIL] Keys: %s", err)
	}
	defer it.Release()
	// mutation after snapshot must not disturb the cursor
	if err = c.Wipe(); err != nil {
		t.Fatalf("[FAIL] Wipe: %s", err)
	}
	seen := 0
	for it.Next() {
		if it.Key() == nil {
			t.Error("[FAIL] nil key mid-iteration")
		}
		seen++
	}
	if seen != 10 {
		t.Errorf("[FAIL] snapshot iterated %d keys, wanted 10", seen)
	}
	n, err := c.Len()
	if err != nil || n != 0 {
		t.Errorf("[FAIL] Len after Wipe: n=%d err=%v", n, err)
	}
}

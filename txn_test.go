package tdb_test

import (
	"bytes"
	"errors"
	"testing"

	"git.tcp.direct/kayos/common/entropy"

	"git.tcp.direct/tcp.direct/tdb"
)

func TestTransactionCommit(t *testing.T) {
	for _, engine := range []string{"memory", "bitcask"} {
		t.Run(engine, func(t *testing.T) {
			db := openTestDB(t, engine, 0)
			base, baseVal := randKV()
			if err := db.Store(base, baseVal, tdb.Replace); err != nil {
				t.Fatalf("[FAIL] Store: %s", err)
			}

			if err := db.TransactionStart(); err != nil {
				t.Fatalf("[FAIL] TransactionStart: %s", err)
			}
			if !db.TransactionActive() {
				t.Fatal("[FAIL] TransactionActive must be true after start")
			}
			staged, stagedVal := randKV()
			if err := db.Store(staged, stagedVal, tdb.Replace); err != nil {
				t.Fatalf("[FAIL] Store inside transaction: %s", err)
			}
			if err := db.Delete(base); err != nil {
				t.Fatalf("[FAIL] Delete inside transaction: %s", err)
			}

			// staged state is visible through the handle
			if got, ok, _ := db.Fetch(staged); !ok || !bytes.Equal(got, stagedVal) {
				t.Errorf("[FAIL] staged record not visible: ok=%t", ok)
			}
			if ok, _ := db.Exists(base); ok {
				t.Error("[FAIL] staged delete not visible")
			}
			if n, err := db.Len(); err != nil || n != 1 {
				t.Errorf("[FAIL] Len under transaction: n=%d err=%v", n, err)
			}

			if err := db.TransactionCommit(); err != nil {
				t.Fatalf("[FAIL] TransactionCommit: %s", err)
			}
			if db.TransactionActive() {
				t.Error("[FAIL] TransactionActive must be false after commit")
			}
			if got, ok, _ := db.Fetch(staged); !ok || !bytes.Equal(got, stagedVal) {
				t.Errorf("[FAIL] committed record missing: ok=%t", ok)
			}
			if ok, _ := db.Exists(base); ok {
				t.Error("[FAIL] committed delete missing")
			}
		})
	}
}

func TestTransactionCancel(t *testing.T) {
	db := openTestDB(t, "memory", 0)
	key, value := randKV()
	if err := db.Store(key, value, tdb.Replace); err != nil {
		t.Fatalf("[FAIL] Store: %s", err)
	}
	if err := db.TransactionStart(); err != nil {
		t.Fatalf("[FAIL] TransactionStart: %s", err)
	}
	if err := db.Delete(key); err != nil {
		t.Fatalf("[FAIL] Delete inside transaction: %s", err)
	}
	if err := db.Store([]byte(entropy.RandStr(16)), []byte("doomed"), tdb.Replace); err != nil {
		t.Fatalf("[FAIL] Store inside transaction: %s", err)
	}
	if err := db.TransactionCancel(); err != nil {
		t.Fatalf("[FAIL] TransactionCancel: %s", err)
	}
	if got, ok, _ := db.Fetch(key); !ok || !bytes.Equal(got, value) {
		t.Errorf("[FAIL] cancel did not restore prior state: ok=%t", ok)
	}
	if n, err := db.Len(); err != nil || n != 1 {
		t.Errorf("[FAIL] Len after cancel: n=%d err=%v", n, err)
	}
}

func TestTransactionNesting(t *testing.T) {
	t.Run("DeniedByDefault", func(t *testing.T) {
		db := openTestDB(t, "memory", 0)
		if err := db.TransactionStart(); err != nil {
			t.Fatalf("[FAIL] TransactionStart: %s", err)
		}
		if err := db.TransactionStart(); !errors.Is(err, tdb.ErrNesting) {
			t.Errorf("[FAIL] nested start without AllowNesting: wanted ErrNesting, got %v", err)
		}
	})

	t.Run("AllowedWithFlag", func(t *testing.T) {
		db := openTestDB(t, "memory", tdb.AllowNesting)
		if err := db.TransactionStart(); err != nil {
			t.Fatalf("[FAIL] outer start: %s", err)
		}
		outer, outerVal := randKV()
		if err := db.Store(outer, outerVal, tdb.Replace); err != nil {
			t.Fatalf("[FAIL] outer store: %s", err)
		}
		if err := db.TransactionStart(); err != nil {
			t.Fatalf("[FAIL] inner start: %s", err)
		}
		inner, innerVal := randKV()
		if err := db.Store(inner, innerVal, tdb.Replace); err != nil {
			t.Fatalf("[FAIL] inner store: %s", err)
		}
		if err := db.TransactionCommit(); err != nil {
			t.Fatalf("[FAIL] inner commit: %s", err)
		}
		// inner write-set folded into the outer frame, nothing applied yet
		if !db.TransactionActive() {
			t.Fatal("[FAIL] outer transaction must still be active")
		}
		if err := db.TransactionCommit(); err != nil {
			t.Fatalf("[FAIL] outer commit: %s", err)
		}
		for _, key := range [][]byte{outer, inner} {
			if ok, _ := db.Exists(key); !ok {
				t.Errorf("[FAIL] record %s missing after nested commit", key)
			}
		}
	})

	t.Run("InnerCancelKeepsOuter", func(t *testing.T) {
		db := openTestDB(t, "memory", tdb.AllowNesting)
		if err := db.TransactionStart(); err != nil {
			t.Fatalf("[FAIL] outer start: %s", err)
		}
		outer, outerVal := randKV()
		if err := db.Store(outer, outerVal, tdb.Replace); err != nil {
			t.Fatalf("[FAIL] outer store: %s", err)
		}
		if err := db.TransactionStart(); err != nil {
			t.Fatalf("[FAIL] inner start: %s", err)
		}
		inner, innerVal := randKV()
		if err := db.Store(inner, innerVal, tdb.Replace); err != nil {
			t.Fatalf("[FAIL] inner store: %s", err)
		}
		if err := db.TransactionCancel(); err != nil {
			t.Fatalf("[FAIL] inner cancel: %s", err)
		}
		if err := db.TransactionCommit(); err != nil {
			t.Fatalf("[FAIL] outer commit: %s", err)
		}
		if ok, _ := db.Exists(outer); !ok {
			t.Error("[FAIL] outer record missing")
		}
		if ok, _ := db.Exists(inner); ok {
			t.Error("[FAIL] canceled inner record leaked")
		}
	})
}

func TestTransactionWipe(t *testing.T) {
	db := openTestDB(t, "memory", 0)
	old, oldVal := randKV()
	if err := db.Store(old, oldVal, tdb.Replace); err != nil {
		t.Fatalf("[FAIL] Store: %s", err)
	}
	if err := db.TransactionStart(); err != nil {
		t.Fatalf("[FAIL] TransactionStart: %s", err)
	}
	if err := db.Wipe(); err != nil {
		t.Fatalf("[FAIL] Wipe inside transaction: %s", err)
	}
	fresh, freshVal := randKV()
	if err := db.Store(fresh, freshVal, tdb.Replace); err != nil {
		t.Fatalf("[FAIL] Store after staged wipe: %s", err)
	}
	if ok, _ := db.Exists(old); ok {
		t.Error("[FAIL] staged wipe not visible")
	}
	if err := db.TransactionCommit(); err != nil {
		t.Fatalf("[FAIL] TransactionCommit: %s", err)
	}
	if ok, _ := db.Exists(old); ok {
		t.Error("[FAIL] wiped record survived commit")
	}
	if ok, _ := db.Exists(fresh); !ok {
		t.Error("[FAIL] post-wipe record missing after commit")
	}
}

func TestTransactionMisuse(t *testing.T) {
	db := openTestDB(t, "memory", 0)
	if err := db.TransactionCommit(); !errors.Is(err, tdb.ErrNoTransaction) {
		t.Errorf("[FAIL] commit without transaction: wanted ErrNoTransaction, got %v", err)
	}
	if err := db.TransactionCancel(); !errors.Is(err, tdb.ErrNoTransaction) {
		t.Errorf("[FAIL] cancel without transaction: wanted ErrNoTransaction, got %v", err)
	}
	if err := db.TransactionStart(); err != nil {
		t.Fatalf("[FAIL] TransactionStart: %s", err)
	}
	if err := db.Reopen(); !errors.Is(err, tdb.ErrInvalid) {
		t.Errorf("[FAIL] Reopen inside transaction: wanted ErrInvalid, got %v", err)
	}
}

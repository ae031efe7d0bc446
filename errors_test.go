package tdb

import (
	"errors"
	"strings"
	"testing"

	"git.tcp.direct/tcp.direct/tdb/driver"
)

func TestErrorMapping(t *testing.T) {
	t.Run("DriverCodeLifted", func(t *testing.T) {
		inner := errors.New("disk exploded")
		err := opErr("store", "/tmp/db", driver.Wrap(driver.CodeIO, inner))
		var te *Error
		if !errors.As(err, &te) {
			t.Fatalf("[FAIL] opErr did not produce *Error: %T", err)
		}
		if te.Code != CodeIO || te.Op != "store" || te.Path != "/tmp/db" {
			t.Errorf("[FAIL] wrong context: %+v", te)
		}
		if !errors.Is(err, ErrIO) {
			t.Error("[FAIL] ErrIO sentinel did not match")
		}
		if !errors.Is(err, inner) {
			t.Error("[FAIL] underlying engine error lost")
		}
	})

	t.Run("SentinelPerCode", func(t *testing.T) {
		for code, sentinel := range map[Code]error{
			CodeCorrupt:       ErrCorrupt,
			CodeExists:        ErrKeyExists,
			CodeReadOnly:      ErrReadOnly,
			CodeNoExist:       ErrNoExist,
			CodeInvalid:       ErrInvalid,
			CodeNesting:       ErrNesting,
			CodeUseAfterClose: ErrUseAfterClose,
		} {
			if !errors.Is(codeErr("op", "path", code), sentinel) {
				t.Errorf("[FAIL] code %s did not match its sentinel", code)
			}
		}
		if errors.Is(codeErr("op", "path", CodeNoExist), ErrIO) {
			t.Error("[FAIL] NoExist matched ErrIO")
		}
	})

	t.Run("LockFamily", func(t *testing.T) {
		for _, code := range []Code{CodeLock, CodeNoLock, CodeLockTimeout} {
			if !errors.Is(codeErr("open", "path", code), ErrLock) {
				t.Errorf("[FAIL] code %s did not match ErrLock", code)
			}
		}
	})

	t.Run("Message", func(t *testing.T) {
		msg := codeErr("delete", "/x", CodeNoExist).Error()
		for _, want := range []string{"tdb:", "delete", "/x", "no exist"} {
			if !strings.Contains(msg, want) {
				t.Errorf("[FAIL] message %q missing %q", msg, want)
			}
		}
	})
}

func TestFlagHas(t *testing.T) {
	f := ReadOnly | NoSync
	if !f.Has(ReadOnly) || !f.Has(NoSync) {
		t.Error("[FAIL] Has missed set bits")
	}
	if f.Has(SeqNum) || f.Has(ReadOnly|SeqNum) {
		t.Error("[FAIL] Has matched unset bits")
	}
}

func TestStoreModeString(t *testing.T) {
	for mode, want := range map[StoreMode]string{
		Replace:       "replace",
		Insert:        "insert",
		Modify:        "modify",
		StoreMode(42): "invalid",
	} {
		if mode.String() != want {
			t.Errorf("[FAIL] %d.String() = %q, wanted %q", int(mode), mode.String(), want)
		}
	}
}

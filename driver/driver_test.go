package driver

import (
	"errors"
	"testing"
)

type fakeDriver struct{ name string }

func (f fakeDriver) Name() string { return f.name }

func (f fakeDriver) Open(string, Config) (Conn, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	Register("fake", fakeDriver{name: "fake"})
	d := Get("fake")
	if d == nil {
		t.Fatal("[FAIL] registered driver not found")
	}
	if d.Name() != "fake" {
		t.Errorf("[FAIL] wrong driver returned: %s", d.Name())
	}
	if Get("nonexistent") != nil {
		t.Error("[FAIL] Get of unregistered name must return nil")
	}
	found := false
	for _, name := range All() {
		if name == "fake" {
			found = true
		}
	}
	if !found {
		t.Error("[FAIL] All did not include registered driver")
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(nil) != CodeOK {
		t.Error("[FAIL] nil must map to CodeOK")
	}
	if CodeOf(Errf(CodeNoExist, "nope")) != CodeNoExist {
		t.Error("[FAIL] coded error lost its code")
	}
	wrapped := Wrap(CodeCorrupt, errors.New("bad page"))
	if CodeOf(wrapped) != CodeCorrupt {
		t.Error("[FAIL] wrapped error lost its code")
	}
	if CodeOf(errors.New("anonymous")) != CodeIO {
		t.Error("[FAIL] uncoded error must default to CodeIO")
	}
}

func TestCodeString(t *testing.T) {
	if CodeNoExist.String() != "no exist" {
		t.Errorf("[FAIL] CodeNoExist.String() = %q", CodeNoExist.String())
	}
	if Code(999).String() != "unknown(999)" {
		t.Errorf("[FAIL] out-of-range code: %q", Code(999).String())
	}
}

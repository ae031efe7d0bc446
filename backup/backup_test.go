package backup_test

import (
	"os"
	"path/filepath"
	"testing"

	"git.tcp.direct/kayos/common/entropy"
	"github.com/davecgh/go-spew/spew"

	"git.tcp.direct/tcp.direct/tdb"
	"git.tcp.direct/tcp.direct/tdb/backup"

	_ "git.tcp.direct/tcp.direct/tdb/bitcask"
)

func seedDB(t *testing.T) (path string, key, value []byte) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "db")
	db, err := tdb.Open(path, 0, 0)
	if err != nil {
		t.Fatalf("[FAIL] Open: %s", err)
	}
	key = []byte(entropy.RandStr(16))
	value = []byte(entropy.RandStr(55))
	if err = db.Store(key, value, tdb.Replace); err != nil {
		t.Fatalf("[FAIL] Store: %s", err)
	}
	if err = db.Close(); err != nil {
		t.Fatalf("[FAIL] Close: %s", err)
	}
	return path, key, value
}

func TestBackupVerifyRestore(t *testing.T) {
	dbPath, key, value := seedDB(t)
	outDir := t.TempDir()

	bm, err := backup.New(dbPath, outDir)
	if err != nil {
		t.Fatalf("[FAIL] New: %s", err)
	}
	if bm.Engine != "bitcask" {
		t.Errorf("[FAIL] backup metadata missing engine: %s", spew.Sdump(bm))
	}
	if bm.Checksum.Type != "sha256" || bm.Checksum.Value == "" || bm.Size == 0 {
		t.Errorf("[FAIL] incomplete backup metadata: %s", spew.Sdump(bm))
	}

	loaded, err := backup.LoadMetadata(bm.Path())
	if err != nil {
		t.Fatalf("[FAIL] LoadMetadata: %s", err)
	}
	if loaded.Checksum != bm.Checksum {
		t.Errorf("[FAIL] sidecar checksum mismatch: %s", spew.Sdump(loaded, bm))
	}

	if err = backup.Verify(bm, bm.Path()); err != nil {
		t.Fatalf("[FAIL] Verify: %s", err)
	}

	restoreDir := filepath.Join(t.TempDir(), "restored")
	if err = backup.Restore(bm.Path(), restoreDir); err != nil {
		t.Fatalf("[FAIL] Restore: %s", err)
	}
	db, err := tdb.Open(restoreDir, tdb.MustExist, 0)
	if err != nil {
		t.Fatalf("[FAIL] Open of restored database: %s", err)
	}
	defer db.Close()
	got, ok, err := db.Fetch(key)
	if err != nil || !ok {
		t.Fatalf("[FAIL] Fetch from restored database: ok=%t err=%v", ok, err)
	}
	if string(got) != string(value) {
		t.Errorf("[FAIL] restored value mismatch: %s", got)
	}
}

func TestVerifyTamper(t *testing.T) {
	dbPath, _, _ := seedDB(t)
	bm, err := backup.New(dbPath, t.TempDir())
	if err != nil {
		t.Fatalf("[FAIL] New: %s", err)
	}
	f, err := os.OpenFile(bm.Path(), os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("[FAIL] OpenFile: %s", err)
	}
	if _, err = f.Write([]byte{0x00}); err != nil {
		t.Fatalf("[FAIL] Write: %s", err)
	}
	_ = f.Close()
	if err = backup.Verify(bm, bm.Path()); err == nil {
		t.Error("[FAIL] Verify must fail on a tampered archive")
	}
}

func TestRestoreRefusesOverwrite(t *testing.T) {
	dbPath, _, _ := seedDB(t)
	bm, err := backup.New(dbPath, t.TempDir())
	if err != nil {
		t.Fatalf("[FAIL] New: %s", err)
	}
	if err = backup.Restore(bm.Path(), dbPath); err == nil {
		t.Error("[FAIL] Restore over an existing database must fail")
	}
}

func TestBackupRejectsNonDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatalf("[FAIL] WriteFile: %s", err)
	}
	if _, err := backup.New(file, t.TempDir()); err == nil {
		t.Error("[FAIL] New must reject a non-directory source")
	}
}

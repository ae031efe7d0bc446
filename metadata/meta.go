// Package metadata reads and writes the tdb.json sidecar that marks a
// directory as a tdb database. The sidecar records which engine owns the
// data directory so a later open can resolve the engine without being told,
// and refuse to hand a database to the wrong one.
package metadata

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// FileName is the name of the sidecar inside a database directory.
const FileName = "tdb.json"

// File is the parsed sidecar.
type File struct {
	Engine     string                 `json:"engine"`
	Created    time.Time              `json:"created"`
	LastOpened time.Time              `json:"last_opened,omitempty"`
	Flags      uint32                 `json:"flags,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`

	path string
}

// Path returns the path of the sidecar file itself.
func (f *File) Path() string { return f.path }

// Ping stamps the last-opened time. Call Sync to persist it.
func (f *File) Ping() { f.LastOpened = time.Now() }

// Sync writes the sidecar to disk atomically (write-then-rename).
func (f *File) Sync() error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// Create writes a fresh sidecar into dir. An existing sidecar for the same
// engine is reused; one for a different engine is an error.
func Create(dir, engine string, flags uint32) (*File, error) {
	existing, err := Open(dir)
	if err == nil {
		if existing.Engine != engine {
			return nil, errors.New("metadata: sidecar already present for engine " + existing.Engine)
		}
		return existing, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	f := &File{
		Engine:  engine,
		Created: time.Now(),
		Flags:   flags,
		path:    filepath.Join(dir, FileName),
	}
	f.Ping()
	if err = f.Sync(); err != nil {
		return nil, err
	}
	return f, nil
}

// Open reads the sidecar from dir. A missing sidecar surfaces as an error
// matching os.ErrNotExist so callers can treat the directory as
// uninitialized.
func Open(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &File{path: path}
	if err = json.Unmarshal(data, f); err != nil {
		return nil, errors.New("metadata: malformed sidecar: " + err.Error())
	}
	if f.Engine == "" {
		return nil, errors.New("metadata: sidecar missing engine name")
	}
	return f, nil
}

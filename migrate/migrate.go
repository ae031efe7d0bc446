// Package migrate copies records between open tdb handles, typically to
// move a database between engines (memory to bitcask, bitcask to pogreb,
// and so on).
package migrate

import (
	"errors"
	"fmt"

	"git.tcp.direct/tcp.direct/tdb"
)

var (
	// ErrDupKeys is returned when the destination already holds keys the
	// source wants to write and neither clobbering nor skipping was
	// enabled.
	ErrDupKeys = errors.New("duplicate keys found in destination, enable clobber or skip to continue migration")
)

// Migrator copies every record from From into To.
type Migrator struct {
	From *tdb.DB
	To   *tdb.DB

	clobber      bool
	skipExisting bool
}

// New returns a Migrator between two open handles.
func New(from, to *tdb.DB) *Migrator {
	return &Migrator{From: from, To: to}
}

// WithClobber makes the migration overwrite existing destination records.
func (m *Migrator) WithClobber() *Migrator {
	m.clobber = true
	return m
}

// WithSkipExisting makes the migration leave existing destination records
// alone instead of failing on them.
func (m *Migrator) WithSkipExisting() *Migrator {
	m.skipExisting = true
	return m
}

// Run performs the copy and returns the number of records written. Without
// clobber or skip, a destination collision aborts with [ErrDupKeys]; records
// copied before the collision stay copied.
func (m *Migrator) Run() (int, error) {
	if m.To.Flags().Has(tdb.ReadOnly) {
		return 0, fmt.Errorf("destination %s: %w", m.To.Name(), tdb.ErrReadOnly)
	}
	copied := 0
	err := m.From.Traverse(func(key, value []byte) error {
		if !m.clobber {
			ok, herr := m.To.Exists(key)
			if herr != nil {
				return herr
			}
			if ok {
				if m.skipExisting {
					return nil
				}
				return fmt.Errorf("key %q: %w", key, ErrDupKeys)
			}
		}
		if serr := m.To.Store(key, value, tdb.Replace); serr != nil {
			return serr
		}
		copied++
		return nil
	})
	return copied, err
}

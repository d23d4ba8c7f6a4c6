// Package store persists and restores each engine's learned parameters to
// the data directory, one self-describing file per engine (spec §6). Writes
// are atomic where trivially possible: encode to a temp file in the same
// directory, then rename over the target — the spec does not require
// durable crash consistency beyond that (§5).
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/obodeldog/cogni-living-daemon/internal/domain"
)

// File names for the six snapshot files, one per engine plus one for the
// energy brain's PINN regressor (spec §6's persisted layout,
// substituting gob for the original's pickle/keras/pth files — the
// key-value shape is the contract, not the encoding).
const (
	GraphFile    = "graph_behavior.gob"
	TrackerFile  = "tracker_state.gob"
	SecurityFile = "security_model.gob"
	EnergyFile   = "energy_model.gob"
	PINNFile     = "pinn_model.gob"
	HealthFile   = "health_if_model.gob"
)

// Store persists engine snapshots under a single data directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataDirUnwritable, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the underlying data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save gob-encodes v and atomically replaces the named file.
func (s *Store) Save(name string, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistFailed, err)
	}

	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrPersistFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrPersistFailed, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrPersistFailed, err)
	}
	return nil
}

// Load decodes the named file into v. It reports ok=false, nil error when
// the file doesn't exist yet — a brand new engine is not a restore failure.
func (s *Store) Load(name string, v any) (ok bool, err error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", domain.ErrRestoreFailed, err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrRestoreFailed, err)
	}
	return true, nil
}

// Package storage implements persistence and immutability (component
// C10): loading and saving a policy.Config to disk in either its JSON
// or CBOR encoding, with the same load/save-then-atomic-rename shape
// the teacher's spec.ContainerState.Save uses for container state, and
// an optional Linux immutable-attribute toggle so a saved policy file
// can be protected even against its owner until explicitly unlocked.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/renameio/v2"
	"github.com/spf13/afero"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
	"github.com/LeChatP/RootAsRole-sub001/policy"
)

// Backend reads and writes a policy.Config to a StorageDescriptor's
// path, dispatching encoding by its Method and honoring its Immutable
// flag.
type Backend struct {
	// Fs is the filesystem used for existence checks and reads,
	// swappable with afero.NewMemMapFs() in tests. Writes still go
	// through the OS filesystem's atomic rename when Fs is the real
	// one; see writeAtomic below.
	Fs afero.Fs
}

// NewBackend builds a Backend against the real OS filesystem.
func NewBackend() *Backend {
	return &Backend{Fs: afero.NewOsFs()}
}

// Load reads and decodes the policy document at desc.Path.
func (b *Backend) Load(desc policy.StorageDescriptor) (*policy.Config, error) {
	data, err := afero.ReadFile(b.Fs, desc.Path)
	if err != nil {
		return nil, rarerr.Wrap(err, rarerr.SystemError, "storage.load")
	}

	var cfg policy.Config
	switch desc.Method {
	case policy.StorageJSON:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, rarerr.Wrap(err, rarerr.ConfigurationError, "storage.load")
		}
	case policy.StorageCBOR:
		if err := cbor.Unmarshal(data, &cfg); err != nil {
			return nil, rarerr.Wrap(err, rarerr.ConfigurationError, "storage.load")
		}
	default:
		return nil, rarerr.New(rarerr.ConfigurationError, "storage.load", "unknown storage method "+string(desc.Method))
	}

	if err := policy.Link(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save encodes cfg per desc.Method and atomically writes it to
// desc.Path, temporarily clearing the immutable attribute first if the
// existing file carries it and desc.Immutable is set, then restoring
// it afterward (§4.10: a saved policy file may be immutable even to
// its owner, so writing it requires a privileged unlock/lock cycle).
func (b *Backend) Save(cfg *policy.Config, desc policy.StorageDescriptor) error {
	var data []byte
	var err error
	switch desc.Method {
	case policy.StorageJSON:
		data, err = json.MarshalIndent(cfg, "", "  ")
	case policy.StorageCBOR:
		data, err = cbor.Marshal(cfg)
	default:
		return rarerr.New(rarerr.ConfigurationError, "storage.save", "unknown storage method "+string(desc.Method))
	}
	if err != nil {
		return rarerr.Wrap(err, rarerr.SystemError, "storage.save")
	}

	wasImmutable := false
	if desc.Immutable {
		wasImmutable, _ = GetImmutable(desc.Path)
		if wasImmutable {
			if err := SetImmutable(desc.Path, false); err != nil {
				return rarerr.Wrap(err, rarerr.InsufficientPrivileges, "storage.save")
			}
		}
	}

	// Restore the pre-write flag on every exit path, including a failed
	// write, so a crash or permission error never leaves the file
	// permanently mutable. succeeded gates this off once the write (and
	// the final re-lock below) has actually landed.
	succeeded := false
	if wasImmutable {
		defer func() {
			if !succeeded {
				SetImmutable(desc.Path, true)
			}
		}()
	}

	if err := writeAtomic(b.Fs, desc.Path, data, 0o600); err != nil {
		return rarerr.Wrap(err, rarerr.SystemError, "storage.save")
	}

	if desc.Immutable {
		if err := SetImmutable(desc.Path, true); err != nil {
			return rarerr.Wrap(err, rarerr.InsufficientPrivileges, "storage.save")
		}
	}
	succeeded = true
	return nil
}

// writeAtomic writes data to path via temp-file-then-rename. Against
// the real OS filesystem this uses renameio for an fsync'd, crash-safe
// rename; against any other afero.Fs (tests) it falls back to a plain
// write since in-memory filesystems have no crash-consistency to
// protect.
func writeAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	if isOsFs(fs) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
		return renameio.WriteFile(path, data, perm)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, perm)
}

// isOsFs reports whether fs is backed by the real OS filesystem,
// accepting either the pointer or value form afero.NewOsFs() might
// return across versions, so the atomic-rename path is never silently
// skipped in production because of an overly narrow type assertion.
func isOsFs(fs afero.Fs) bool {
	switch fs.(type) {
	case *afero.OsFs, afero.OsFs:
		return true
	default:
		return false
	}
}

package cookie

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/karrick/godirwalk"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

// file holds every scope's cookie for one uid, persisted as one JSON
// file per the "directory with one file per uid" requirement (§4.9).
type file struct {
	Records []Record `json:"records"`
}

// Store persists cookies under dir, one file per uid, guarded by an
// advisory flock the way multiple concurrent `sr` invocations for the
// same uid must serialize their cookie read-modify-write.
type Store struct {
	dir string
}

// NewStore builds a Store rooted at dir. The caller is responsible for
// ensuring dir exists with restrictive permissions (0700, owner root).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) pathFor(uid uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d.json", uid))
}

func (s *Store) lockPathFor(uid uint32) string {
	return s.pathFor(uid) + ".lock"
}

// withLock runs fn while holding an exclusive advisory lock on uid's
// cookie file, the same single-writer-at-a-time guarantee the policy
// storage layer needs for its own file (§4.10 shares this idiom).
func (s *Store) withLock(uid uint32, fn func() error) error {
	lock := flock.New(s.lockPathFor(uid))
	locked, err := lock.TryLock()
	if err != nil {
		return rarerr.Wrap(err, rarerr.SystemError, "cookie.lock")
	}
	if !locked {
		if err := lock.Lock(); err != nil {
			return rarerr.Wrap(err, rarerr.SystemError, "cookie.lock")
		}
	}
	defer lock.Unlock()
	return fn()
}

func (s *Store) load(uid uint32) (file, error) {
	data, err := os.ReadFile(s.pathFor(uid))
	if os.IsNotExist(err) {
		return file{}, nil
	}
	if err != nil {
		return file{}, rarerr.Wrap(err, rarerr.SystemError, "cookie.load")
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return file{}, rarerr.Wrap(err, rarerr.ConfigurationError, "cookie.load")
	}
	return f, nil
}

// save atomically rewrites uid's cookie file via temp-file+rename,
// mirroring spec/state.go's Save pattern, using renameio so the
// rename is fsync'd and crash-safe.
func (s *Store) save(uid uint32, f file) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return rarerr.Wrap(err, rarerr.SystemError, "cookie.save")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return rarerr.Wrap(err, rarerr.SystemError, "cookie.save")
	}
	return renameio.WriteFile(s.pathFor(uid), data, 0o600)
}

// Lookup returns the cookie for (uid, scope) if present.
func (s *Store) Lookup(uid uint32, scope ScopeKey) (Record, bool, error) {
	var out Record
	found := false
	err := s.withLock(uid, func() error {
		f, err := s.load(uid)
		if err != nil {
			return err
		}
		for _, r := range f.Records {
			if r.Scope == scope {
				out, found = r, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

// Consume validates and, if valid, decrements uses_remaining on the
// cookie for (uid, scope), persisting the decrement (§4.9: "On
// successful validation, decrement uses").
func (s *Store) Consume(uid uint32, scope ScopeKey, now time.Time, duration time.Duration) (bool, error) {
	ok := false
	err := s.withLock(uid, func() error {
		f, err := s.load(uid)
		if err != nil {
			return err
		}
		for i, r := range f.Records {
			if r.Scope != scope {
				continue
			}
			if !r.Valid(now, duration) {
				return nil
			}
			f.Records[i].UsesRemaining--
			ok = true
			return s.save(uid, f)
		}
		return nil
	})
	return ok, err
}

// Issue writes a fresh cookie for (uid, scope) with the given usage
// budget, replacing any prior cookie at that scope (§4.9: "On any
// authentication success, write a fresh cookie with
// uses_remaining = max_usage").
func (s *Store) Issue(uid uint32, scope ScopeKey, now time.Time, maxUsage uint32) error {
	return s.withLock(uid, func() error {
		f, err := s.load(uid)
		if err != nil {
			return err
		}
		replaced := false
		for i, r := range f.Records {
			if r.Scope == scope {
				f.Records[i] = Record{Scope: scope, CreatedAt: now, UsesRemaining: maxUsage}
				replaced = true
				break
			}
		}
		if !replaced {
			f.Records = append(f.Records, Record{Scope: scope, CreatedAt: now, UsesRemaining: maxUsage})
		}
		return s.save(uid, f)
	})
}

// PurgeUID removes every cookie for one uid (`-K`/purge scoped to the
// caller, §4.9).
func (s *Store) PurgeUID(uid uint32) error {
	err := os.Remove(s.pathFor(uid))
	if err != nil && !os.IsNotExist(err) {
		return rarerr.Wrap(err, rarerr.SystemError, "cookie.purge")
	}
	return nil
}

// PurgeAll removes every cookie file in the store directory, walking
// it with godirwalk the way a bulk `-K` across all uids needs to scan
// a potentially large directory without loading every entry into
// memory at once.
func (s *Store) PurgeAll() error {
	err := godirwalk.Walk(s.dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == s.dir || de.IsDir() {
				return nil
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			return nil
		},
		Unsorted: true,
	})
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return rarerr.Wrap(err, rarerr.SystemError, "cookie.purge_all")
	}
	return nil
}

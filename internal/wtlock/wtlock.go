// Package wtlock provides the per-worktree exclusive write token
// (spec §4.9/§5): a single-writer lock keyed by worktree path, held
// for the duration of one mutating operation and released on every
// exit path, including failure.
package wtlock

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/nightlyone/lockfile"
)

// ErrUnavailable is returned by [Acquire] when another writer already
// holds the token for this worktree. Callers may retry; the spec
// surfaces this as the `LockUnavailable` error kind.
var ErrUnavailable = errors.New("another writer holds the worktree lock")

// Token is a held exclusive write token for one worktree. The zero
// value is not usable; obtain one via [Acquire].
type Token struct {
	lock lockfile.Lockfile
	path string

	releaseOnce sync.Once
	releaseErr  error
}

// Acquire takes the exclusive write token for the worktree whose
// `.git` directory is gitDir. The token is backed by a PID lockfile
// at <gitDir>/wsforge.lock, following the same "one file per
// worktree, not per repository" scoping the ref-metadata store
// (internal/refstore) uses, so two worktrees of the same repository
// never contend for each other's token.
//
// Release must be called on every exit path; callers should defer it
// immediately after a successful Acquire.
func Acquire(gitDir string) (*Token, error) {
	path := filepath.Join(gitDir, "wsforge.lock")
	lf, err := lockfile.New(path)
	if err != nil {
		return nil, fmt.Errorf("wtlock: construct lockfile %s: %w", path, err)
	}

	if err := lf.TryLock(); err != nil {
		if errors.Is(err, lockfile.ErrBusy) {
			return nil, ErrUnavailable
		}
		// A stale lock left by a crashed process (ErrNotExist /
		// ErrDeadOwner / malformed PID) is exactly what
		// lockfile.TryLock already tries to reclaim before
		// reporting ErrBusy; a stricter error here is only ever
		// genuine I/O or permission trouble, so surface it as-is
		// rather than mapping it to ErrUnavailable.
		return nil, fmt.Errorf("wtlock: lock %s: %w", path, err)
	}

	return &Token{lock: lf, path: path}, nil
}

// Release gives up the write token. It is safe to call more than
// once, including concurrently (a deferred Release racing a
// [Token.ReleaseOnSignal] handler); only the first call actually
// unlocks, and every caller observes that call's result.
func (t *Token) Release() error {
	if t == nil {
		return nil
	}
	t.releaseOnce.Do(func() {
		if err := t.lock.Unlock(); err != nil && !errors.Is(err, lockfile.ErrRogueDeletion) {
			t.releaseErr = fmt.Errorf("wtlock: unlock %s: %w", t.path, err)
		}
	})
	return t.releaseErr
}

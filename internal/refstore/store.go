package refstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"go.wsforge.dev/core/internal/random"
	"go.wsforge.dev/core/internal/silog"
)

type document struct {
	Branches   map[string]Branch    `yaml:"branches,omitempty"`
	Workspaces map[string]Workspace `yaml:"workspaces,omitempty"`
}

// Store is a file-backed ref-metadata store. There is exactly one
// store per worktree, backed by exactly one on-disk file.
//
// Writes are debounced: mutating operations only update the in-memory
// document. The document is written to disk on an explicit [Store.Flush]
// and on drop (see [Open]). A Store is not safe for concurrent use from
// multiple goroutines without external synchronization beyond what its
// own mutex provides for individual method calls; it does not
// serialize multi-step read-modify-write sequences across callers.
type Store struct {
	*state
}

// state holds everything a Store needs, split out from Store itself
// so that the drop-time flush registered with [runtime.AddCleanup] can
// close over it without keeping the Store (and thus itself) alive
// forever.
type state struct {
	path string
	log  *silog.Logger

	mu      sync.Mutex
	doc     document
	dirty   bool
	corrupt bool

	// loadStamp is the (mtime, size) of the file as last read or
	// written by this store; used to detect a concurrent writer.
	loadStamp fileStamp
}

type fileStamp struct {
	modTime time.Time
	size    int64
}

func statStamp(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}, nil
}

// Options configures [Open].
type Options struct {
	// Log specifies the logger to use. Defaults to no logging.
	Log *silog.Logger
}

// Open opens (or creates) the ref-metadata store backed by the file at
// path. If the file exists but can't be parsed, the store starts
// empty, the broken file is renamed aside for diagnosis, and a warning
// is logged; Open never fails because of corrupt content.
//
// The returned Store flushes pending writes when it is garbage
// collected, swallowing (logging) any error, in addition to whatever
// explicit [Store.Flush] calls the caller makes.
func Open(path string, opts Options) (*Store, error) {
	if opts.Log == nil {
		opts.Log = silog.Nop()
	}

	st := &state{path: path, log: opts.Log}
	s := &Store{state: st}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var doc document
		if uerr := yaml.Unmarshal(data, &doc); uerr != nil {
			s.corrupt = true
			s.log.Warnf("ref metadata store: %s is corrupt, starting fresh: %v", path, uerr)
			if rerr := preserveCorrupt(path); rerr != nil {
				s.log.Warnf("ref metadata store: could not preserve corrupt file: %v", rerr)
			}
			break
		}
		s.doc = doc
		if stamp, serr := statStamp(path); serr == nil {
			s.loadStamp = stamp
		}
	case errors.Is(err, fs.ErrNotExist):
		// No file yet: start with an empty document.
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if s.doc.Branches == nil {
		s.doc.Branches = make(map[string]Branch)
	}
	if s.doc.Workspaces == nil {
		s.doc.Workspaces = make(map[string]Workspace)
	}

	runtime.AddCleanup(s, func(st *state) {
		st.mu.Lock()
		defer st.mu.Unlock()
		if !st.dirty {
			return
		}
		// Best-effort: a cleanup can't return an error to anyone.
		if err := flushPath(st.path, &st.doc); err != nil {
			st.log.Warnf("ref metadata store: flush on drop failed: %v", err)
		}
	}, st)

	return s, nil
}

func preserveCorrupt(path string) error {
	dst := fmt.Sprintf("%s.corrupt-%d", path, time.Now().UnixNano())
	return os.Rename(path, dst)
}

// WasCorrupt reports whether the on-disk file was unreadable when
// this store was opened.
func (s *Store) WasCorrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corrupt
}

// GetWorkspace returns the record for ref, or the zero Workspace if it
// has never been set.
func (s *Store) GetWorkspace(_ context.Context, ref string) Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Workspaces[ref]
}

// GetBranch returns the record for ref, or the zero Branch if it has
// never been set.
func (s *Store) GetBranch(_ context.Context, ref string) Branch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Branches[ref]
}

// SetWorkspace records value under ref, creating or replacing any
// existing record. Any branch referenced by value.Stacks that lacks a
// stack id has one synthesised and assigned; a branch with no record
// yet gets a new record holding only that stack id.
func (s *Store) SetWorkspace(_ context.Context, ref string, value Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkConflictLocked(); err != nil {
		return err
	}

	now := time.Now()
	if value.RefInfo.CreatedAt == nil {
		if existing, ok := s.doc.Workspaces[ref]; ok && existing.RefInfo.CreatedAt != nil {
			value.RefInfo.CreatedAt = existing.RefInfo.CreatedAt
		} else {
			value.RefInfo.CreatedAt = &now
		}
	}
	value.RefInfo.UpdatedAt = &now

	for _, stack := range value.Stacks {
		for _, wb := range stack.Branches {
			branch := s.doc.Branches[wb.RefName]
			if branch.StackID == "" {
				branch.StackID = random.Alnum(12)
				s.doc.Branches[wb.RefName] = branch
			}
		}
	}

	s.doc.Workspaces[ref] = value
	s.dirty = true
	return nil
}

// SetBranch records value under ref. If ref has never been seen, and
// value has no stack id, a new stack id is synthesised for it;
// otherwise the branch keeps its existing stack id regardless of what
// is passed in value, since a branch's stack membership does not
// change via SetBranch alone.
func (s *Store) SetBranch(_ context.Context, ref string, value Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkConflictLocked(); err != nil {
		return err
	}

	now := time.Now()
	existing, known := s.doc.Branches[ref]
	if value.RefInfo.CreatedAt == nil {
		if known && existing.RefInfo.CreatedAt != nil {
			value.RefInfo.CreatedAt = existing.RefInfo.CreatedAt
		} else {
			value.RefInfo.CreatedAt = &now
		}
	}
	value.RefInfo.UpdatedAt = &now

	if known && existing.StackID != "" {
		value.StackID = existing.StackID
	} else if value.StackID == "" {
		value.StackID = random.Alnum(12)
	}

	s.doc.Branches[ref] = value
	s.dirty = true
	return nil
}

// Remove deletes the record for ref, whichever kind it is. It reports
// whether ref previously held a non-default value.
func (s *Store) Remove(_ context.Context, ref string) (existed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkConflictLocked(); err != nil {
		return false, err
	}

	if _, ok := s.doc.Branches[ref]; ok {
		delete(s.doc.Branches, ref)
		existed = true
	}
	if _, ok := s.doc.Workspaces[ref]; ok {
		delete(s.doc.Workspaces, ref)
		existed = true
	}
	if existed {
		s.dirty = true
	}
	return existed, nil
}

// Entry is a single (ref, value) pair yielded by [Store.Iter]. Exactly
// one of Workspace or Branch is non-nil.
type Entry struct {
	Ref       string
	Workspace *Workspace
	Branch    *Branch
}

// Iter returns every record in the store, workspaces first,
// each kind in ref-name order.
func (s *Store) Iter() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.doc.Branches)+len(s.doc.Workspaces))

	wsRefs := make([]string, 0, len(s.doc.Workspaces))
	for ref := range s.doc.Workspaces {
		wsRefs = append(wsRefs, ref)
	}
	sort.Strings(wsRefs)
	for _, ref := range wsRefs {
		ws := s.doc.Workspaces[ref]
		entries = append(entries, Entry{Ref: ref, Workspace: &ws})
	}

	branchRefs := make([]string, 0, len(s.doc.Branches))
	for ref := range s.doc.Branches {
		branchRefs = append(branchRefs, ref)
	}
	sort.Strings(branchRefs)
	for _, ref := range branchRefs {
		b := s.doc.Branches[ref]
		entries = append(entries, Entry{Ref: ref, Branch: &b})
	}

	return entries
}

// checkConflictLocked reports [ErrConflict] if the on-disk file has
// changed since it was last read or written by this store. Callers
// must hold s.mu.
func (s *Store) checkConflictLocked() error {
	stamp, err := statStamp(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // nothing on disk yet: no conflict possible
		}
		return fmt.Errorf("stat %s: %w", s.path, err)
	}

	if s.loadStamp != (fileStamp{}) && stamp != s.loadStamp {
		return ErrConflict
	}
	return nil
}

// Flush writes pending changes to disk. It is a no-op if nothing has
// changed since the last flush.
func (s *Store) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	if err := flushPath(s.path, &s.doc); err != nil {
		return err
	}

	stamp, err := statStamp(s.path)
	if err == nil {
		s.loadStamp = stamp
	}
	s.dirty = false
	return nil
}

// flushPath writes doc to path atomically: write to a temp file in the
// same directory, then rename over the destination.
func flushPath(path string, doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".refstore-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
